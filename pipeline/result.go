// Package pipeline orchestrates the storyvox text-to-audio pipeline.
//
// The pipeline turns narrative text into a multi-voice narration through
// five pluggable stages: text analysis, character detection, voice
// assignment, audio generation, and audio optimization. Stage
// implementations are bound at runtime through a Registry and driven in
// sequence by an Orchestrator.
package pipeline

import "fmt"

// Result is the uniform outcome envelope returned at every stage and run
// boundary. Exactly one of Value and ErrorMessage is meaningful, determined
// by Succeeded. Results are created fresh at each boundary and never
// mutated after construction.
type Result[T any] struct {
	Succeeded    bool
	Value        T
	ErrorMessage string

	// Metadata carries optional diagnostic key/value pairs. It is never
	// inspected by the orchestrator itself.
	Metadata map[string]string
}

// Ok returns a succeeded result carrying value.
func Ok[T any](value T) Result[T] {
	return Result[T]{Succeeded: true, Value: value}
}

// OkWithMeta returns a succeeded result carrying value and diagnostic
// metadata.
func OkWithMeta[T any](value T, meta map[string]string) Result[T] {
	return Result[T]{Succeeded: true, Value: value, Metadata: meta}
}

// Fail returns a failed result carrying a human-readable message.
func Fail[T any](message string) Result[T] {
	return Result[T]{ErrorMessage: message}
}

// Failf returns a failed result with a formatted message.
func Failf[T any](format string, args ...any) Result[T] {
	return Result[T]{ErrorMessage: fmt.Sprintf(format, args...)}
}

// FailErr returns a failed result carrying err's message.
func FailErr[T any](err error) Result[T] {
	if err == nil {
		return Result[T]{ErrorMessage: "unknown error"}
	}
	return Result[T]{ErrorMessage: err.Error()}
}

// Err returns the failure message as an error, or nil for a succeeded
// result.
func (r Result[T]) Err() error {
	if r.Succeeded {
		return nil
	}
	return fmt.Errorf("%s", r.ErrorMessage)
}
