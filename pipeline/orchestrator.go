package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// OrchestratorConfig holds tunables for the orchestrator.
type OrchestratorConfig struct {
	// OptimizeThreshold is the segment count above which the optimization
	// pass runs even when the caller did not request it.
	OptimizeThreshold int
}

// DefaultOrchestratorConfig returns a sensible default configuration.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		OptimizeThreshold: 10,
	}
}

// Orchestrator drives the pipeline stages in sequence for one run at a
// time. It owns all run-level state: the current status, the run-active
// flag, and the cancellation signal. Stage implementations are resolved
// through the registry at run time, never held across runs.
type Orchestrator struct {
	registry *Registry
	config   OrchestratorConfig
	logger   *log.Logger

	mu        sync.RWMutex
	active    bool
	cancelled bool
	cancelRun context.CancelFunc
	status    Status
}

// New creates an orchestrator bound to the given registry.
func New(registry *Registry) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		config:   DefaultOrchestratorConfig(),
		logger:   log.Default(),
		status:   Status{Stage: StageAnalyzing, Progress: 0},
	}
}

// SetConfig replaces the orchestrator configuration. Not safe to call
// during an active run.
func (o *Orchestrator) SetConfig(config OrchestratorConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.config = config
}

// SetLogger replaces the default logger.
func (o *Orchestrator) SetLogger(logger *log.Logger) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logger = logger
}

// ProcessingStatus returns a snapshot of the current run status. It
// always succeeds and never blocks on an in-flight run.
func (o *Orchestrator) ProcessingStatus() Result[Status] {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Ok(o.status)
}

// CancelProcessing requests cancellation of the active run. It fails when
// no run is active. Cancellation is cooperative: the status flips to an
// error state immediately, and the in-flight run unwinds at its next
// checkpoint; work already dispatched for the current segment is allowed
// to finish.
func (o *Orchestrator) CancelProcessing() Result[bool] {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.active {
		return Fail[bool](ErrNothingToCancel.Error())
	}

	o.cancelled = true
	if o.cancelRun != nil {
		o.cancelRun()
	}
	o.status = Status{Stage: StageError, Progress: 0, Message: cancelMessage}
	o.logger.Info("cancellation requested")
	return Ok(true)
}

const cancelMessage = "processing cancelled by user"

// ProcessStory runs the full pipeline over the input text. Exactly one
// run may be active per orchestrator; concurrent calls are rejected
// immediately rather than queued. The caller always receives either a
// succeeded envelope with a complete narration or a failed envelope with
// one message naming the stage that failed — never a partial result and
// never a panic.
func (o *Orchestrator) ProcessStory(ctx context.Context, text string, opts Options) (result Result[*Narration]) {
	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return Fail[*Narration](ErrProcessingActive.Error())
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.active = true
	o.cancelled = false
	o.cancelRun = cancel
	o.status = Status{Stage: StageAnalyzing, Progress: 0, Message: "starting"}
	o.mu.Unlock()

	start := time.Now()

	// Cleanup must happen unconditionally, including when a stage panics.
	defer func() {
		cancel()
		o.mu.Lock()
		o.active = false
		o.cancelled = false
		o.cancelRun = nil
		o.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("internal pipeline failure: %v", r)
			o.logger.Error("run panicked", "panic", r)
			o.setStatus(Status{Stage: StageError, Progress: 0, Message: msg})
			result = Fail[*Narration](msg)
		}
	}()

	if opts.Format == "" {
		opts.Format = FormatWAV
	}
	if opts.Narrator && opts.NarratorProfile.ID == "" {
		opts.NarratorProfile = DefaultNarratorVoice
	}

	if !o.registry.FullyConfigured() {
		return o.fatal(fmt.Sprintf("%s: missing %v", ErrNotConfigured, o.registry.Missing()))
	}

	// Stage: analyzing.
	analyzer, err := Resolve[TextAnalyzer](o.registry, CapTextAnalysis)
	if err != nil {
		return o.fatal(err.Error())
	}
	o.setStatus(Status{Stage: StageAnalyzing, Progress: 10, Message: "Analyzing text"})
	segRes := protect("text analysis", func() Result[[]Segment] {
		return analyzer.ParseText(runCtx, text)
	})
	if !segRes.Succeeded {
		return o.failStage(runCtx, "Text analysis failed: "+segRes.ErrorMessage)
	}
	segments := segRes.Value
	if len(segments) == 0 {
		return o.fatal("Text analysis failed: " + ErrNoSegments.Error())
	}
	o.setStatus(Status{
		Stage:    StageAnalyzing,
		Progress: 25,
		Message:  fmt.Sprintf("Parsed %d segments", len(segments)),
	})
	o.logger.Debug("stage complete", "stage", StageAnalyzing, "segments", len(segments))

	if err := o.checkpoint(runCtx); err != nil {
		return o.fatal(o.cancelReason(runCtx))
	}

	var (
		voiceByName    map[string]VoiceProfile
		characterCount int
	)
	if !opts.Narrator {
		// Stage: detecting.
		detector, err := Resolve[CharacterDetector](o.registry, CapCharacterDetection)
		if err != nil {
			return o.fatal(err.Error())
		}
		o.setStatus(Status{Stage: StageDetecting, Progress: 40, Message: "Detecting characters"})
		charRes := protect("character detection", func() Result[[]Character] {
			return detector.DetectCharacters(runCtx, segments)
		})
		if !charRes.Succeeded {
			return o.failStage(runCtx, "Character detection failed: "+charRes.ErrorMessage)
		}
		characters := charRes.Value
		characterCount = countNamed(characters)
		o.setStatus(Status{
			Stage:    StageDetecting,
			Progress: 55,
			Message:  fmt.Sprintf("Detected %d characters", characterCount),
		})
		o.logger.Debug("stage complete", "stage", StageDetecting, "characters", characterCount)

		if err := o.checkpoint(runCtx); err != nil {
			return o.fatal(o.cancelReason(runCtx))
		}

		// Stage: assigning.
		assigner, err := Resolve[VoiceAssigner](o.registry, CapVoiceAssignment)
		if err != nil {
			return o.fatal(err.Error())
		}
		o.setStatus(Status{Stage: StageAssigning, Progress: 70, Message: "Assigning voices"})
		assignRes := protect("voice assignment", func() Result[[]VoiceAssignment] {
			return assigner.AssignVoices(runCtx, characters)
		})
		if !assignRes.Succeeded {
			return o.failStage(runCtx, "Voice assignment failed: "+assignRes.ErrorMessage)
		}
		voiceByName = make(map[string]VoiceProfile, len(assignRes.Value))
		for _, a := range assignRes.Value {
			voiceByName[a.Character] = a.Voice
		}
		o.setStatus(Status{
			Stage:    StageAssigning,
			Progress: 80,
			Message:  fmt.Sprintf("Assigned %d voices", len(voiceByName)),
		})
		o.logger.Debug("stage complete", "stage", StageAssigning, "voices", len(voiceByName))
	}

	// Stage: generating.
	generator, err := Resolve[AudioGenerator](o.registry, CapAudioGeneration)
	if err != nil {
		return o.fatal(err.Error())
	}
	clips := make([]AudioClip, 0, len(segments))
	for i, segment := range segments {
		if err := o.checkpoint(runCtx); err != nil {
			return o.fatal(o.cancelReason(runCtx))
		}

		voice := opts.NarratorProfile
		if !opts.Narrator {
			var ok bool
			voice, ok = voiceByName[segment.Speaker]
			if !ok {
				// No silent skipping and no default substitution: an
				// unresolved speaker means inconsistent upstream data.
				return o.fatal(fmt.Sprintf(
					"Audio generation failed: %s: %q", ErrUnresolvedSpeaker, segment.Speaker))
			}
		}

		o.setStatus(Status{
			Stage:       StageGenerating,
			Progress:    85 + (i*10)/len(segments),
			Message:     fmt.Sprintf("Generating segment %d of %d", i+1, len(segments)),
			CurrentItem: segment.Speaker,
		})

		clipRes := protect("audio generation", func() Result[AudioClip] {
			return generator.GenerateSegmentAudio(runCtx, segment, voice)
		})
		if !clipRes.Succeeded {
			return o.failStage(runCtx, fmt.Sprintf(
				"Audio generation failed for segment %d: %s", segment.ID, clipRes.ErrorMessage))
		}
		clips = append(clips, clipRes.Value)
	}

	o.setStatus(Status{Stage: StageGenerating, Progress: 95, Message: "Combining audio"})
	combineRes := protect("audio combination", func() Result[*Narration] {
		return generator.CombineClips(runCtx, clips)
	})
	if !combineRes.Succeeded {
		return o.failStage(runCtx, "Audio combination failed: "+combineRes.ErrorMessage)
	}
	narration := combineRes.Value
	narration.SegmentCount = len(segments)
	narration.CharacterCount = characterCount

	// Optional optimization. This is the only stage whose failure does
	// not abort the run: the pre-optimization output is kept instead.
	if o.shouldOptimize(opts, len(segments)) {
		optimizer, err := Resolve[AudioOptimizer](o.registry, CapAudioOptimization)
		if err != nil {
			return o.fatal(err.Error())
		}
		o.setStatus(Status{Stage: StageQualityCheck, Progress: 98, Message: "Optimizing audio"})
		optRes := protect("audio optimization", func() Result[[]byte] {
			return optimizer.OptimizeAudio(runCtx, narration.PCM)
		})
		if optRes.Succeeded {
			narration.PCM = optRes.Value
			narration.Optimized = true
		} else {
			o.logger.Warn("optimization failed, keeping unoptimized audio",
				"error", optRes.ErrorMessage)
		}
	}

	narration.ProcessingTime = time.Since(start)
	o.setStatus(Status{Stage: StageComplete, Progress: 100, Message: "Processing complete"})
	o.logger.Info("run complete",
		"segments", narration.SegmentCount,
		"characters", narration.CharacterCount,
		"duration", narration.Duration,
		"took", narration.ProcessingTime)
	return Ok(narration)
}

// shouldOptimize decides whether the quality pass runs for this run.
func (o *Orchestrator) shouldOptimize(opts Options, segmentCount int) bool {
	o.mu.RLock()
	threshold := o.config.OptimizeThreshold
	o.mu.RUnlock()
	return opts.QualityAnalysis ||
		opts.Format == FormatCompressed ||
		(threshold > 0 && segmentCount > threshold)
}

// checkpoint reports cancellation. It is consulted at every stage
// boundary and before every per-segment generation call.
func (o *Orchestrator) checkpoint(ctx context.Context) error {
	o.mu.RLock()
	cancelled := o.cancelled
	o.mu.RUnlock()
	if cancelled || ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

// cancelReason describes why a run is unwinding: the user-facing
// cancellation message for CancelProcessing, the context error for a
// cancellation or deadline arriving from the caller.
func (o *Orchestrator) cancelReason(ctx context.Context) string {
	o.mu.RLock()
	cancelled := o.cancelled
	o.mu.RUnlock()
	if cancelled {
		return cancelMessage
	}
	return fmt.Sprintf("processing cancelled: %v", ctx.Err())
}

// failStage records a stage failure. A cancellation that lands while the
// stage is in flight makes the stage return its own context error; the
// cancellation message wins over the stage-prefixed one in that case.
func (o *Orchestrator) failStage(ctx context.Context, message string) Result[*Narration] {
	if o.checkpoint(ctx) != nil {
		return o.fatal(o.cancelReason(ctx))
	}
	return o.fatal(message)
}

// fatal records a run-ending failure and builds the failed envelope.
func (o *Orchestrator) fatal(message string) Result[*Narration] {
	o.logger.Error("run failed", "error", message)
	o.setStatus(Status{Stage: StageError, Progress: 0, Message: message})
	return Fail[*Narration](message)
}

// setStatus overwrites the status snapshot whole.
func (o *Orchestrator) setStatus(s Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s.Stage != o.status.Stage && !validTransition(o.status.Stage, s.Stage) {
		o.logger.Debug("out-of-order stage transition",
			"from", o.status.Stage, "to", s.Stage)
	}
	o.status = s
}

// countNamed counts characters other than the narrator.
func countNamed(characters []Character) int {
	n := 0
	for _, c := range characters {
		if c.Name != NarratorSpeaker {
			n++
		}
	}
	return n
}

// protect converts a panicking stage call into a failed envelope so that
// no stage error can escape the orchestrator uncaught.
func protect[T any](stage string, fn func() Result[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Failf[T]("%s panicked: %v", stage, r)
		}
	}()
	return fn()
}
