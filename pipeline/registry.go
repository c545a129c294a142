package pipeline

import (
	"fmt"
	"sync"
)

// Capability names an abstract pipeline stage that an implementation can
// be registered under.
type Capability string

// The five stage capabilities every run resolves.
const (
	CapTextAnalysis       Capability = "TextAnalysis"
	CapCharacterDetection Capability = "CharacterDetection"
	CapVoiceAssignment    Capability = "VoiceAssignment"
	CapAudioGeneration    Capability = "AudioGeneration"
	CapAudioOptimization  Capability = "AudioOptimization"
)

// allCapabilities is the set FullyConfigured checks.
var allCapabilities = []Capability{
	CapTextAnalysis,
	CapCharacterDetection,
	CapVoiceAssignment,
	CapAudioGeneration,
	CapAudioOptimization,
}

// Registry binds each capability to one concrete implementation for the
// lifetime of a process. It is an instance-scoped container handed to the
// orchestrator at construction so tests can swap in fakes.
//
// Registration is expected to happen once at start-up, before any run
// begins. The lock exists because the orchestrator resolves from whatever
// goroutine the caller runs on, not to support re-registration during a
// run.
type Registry struct {
	mu       sync.RWMutex
	bindings map[Capability]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[Capability]any)}
}

// Register binds an implementation to a capability. A prior binding for
// the same capability is replaced; last write wins.
func (r *Registry) Register(capability Capability, impl any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[capability] = impl
}

// lookup returns the raw binding for a capability.
func (r *Registry) lookup(capability Capability) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.bindings[capability]
	return impl, ok
}

// FullyConfigured reports whether every stage capability has a binding.
// It is the pre-flight health check used by the run entry point; an
// unresolved stage means the pipeline cannot run at all.
func (r *Registry) FullyConfigured() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, capability := range allCapabilities {
		if _, ok := r.bindings[capability]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the capabilities without a binding, for diagnostics.
func (r *Registry) Missing() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var missing []Capability
	for _, capability := range allCapabilities {
		if _, ok := r.bindings[capability]; !ok {
			missing = append(missing, capability)
		}
	}
	return missing
}

// Resolve returns the implementation bound to a capability, asserted to
// type T. Resolution fails loudly when nothing is registered or the
// binding has the wrong type; a silently absent stage would let a
// misconfigured pipeline limp into a run it cannot finish.
func Resolve[T any](r *Registry, capability Capability) (T, error) {
	var zero T
	impl, ok := r.lookup(capability)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrNotRegistered, capability)
	}
	typed, ok := impl.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrWrongType, capability, impl)
	}
	return typed, nil
}
