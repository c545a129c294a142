package synth

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/storyvox/storyvox/pipeline"
)

// FallbackGenerator wraps a primary audio generator with automatic
// fallback to a secondary one after consecutive failures. The combine
// step always uses the active generator so clips and narration stay
// consistent within a run.
type FallbackGenerator struct {
	primary     pipeline.AudioGenerator
	fallback    pipeline.AudioGenerator
	maxFailures int

	mu            sync.Mutex
	failures      int
	usingFallback bool

	logger *log.Logger
}

// NewFallbackGenerator creates a generator with automatic fallback after
// maxFailures consecutive primary failures.
func NewFallbackGenerator(primary, fallback pipeline.AudioGenerator, maxFailures int) *FallbackGenerator {
	return &FallbackGenerator{
		primary:     primary,
		fallback:    fallback,
		maxFailures: maxFailures,
		logger:      log.Default(),
	}
}

// GenerateSegmentAudio renders through the active generator, counting
// primary failures and switching once the threshold is crossed.
func (f *FallbackGenerator) GenerateSegmentAudio(ctx context.Context, segment pipeline.Segment, voice pipeline.VoiceProfile) pipeline.Result[pipeline.AudioClip] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.usingFallback {
		return f.fallback.GenerateSegmentAudio(ctx, segment, voice)
	}

	res := f.primary.GenerateSegmentAudio(ctx, segment, voice)
	if res.Succeeded {
		if f.failures > 0 {
			f.logger.Info("primary generator recovered", "failures", f.failures)
			f.failures = 0
		}
		return res
	}

	f.failures++
	f.logger.Warn("primary generator failed",
		"attempt", f.failures, "max", f.maxFailures, "error", res.ErrorMessage)
	if f.failures >= f.maxFailures {
		f.usingFallback = true
		f.logger.Warn("switching to fallback generator")
	}
	return f.fallback.GenerateSegmentAudio(ctx, segment, voice)
}

// CombineClips combines through the active generator.
func (f *FallbackGenerator) CombineClips(ctx context.Context, clips []pipeline.AudioClip) pipeline.Result[*pipeline.Narration] {
	f.mu.Lock()
	active := f.primary
	if f.usingFallback {
		active = f.fallback
	}
	f.mu.Unlock()
	return active.CombineClips(ctx, clips)
}

// UsingFallback reports whether the generator has switched over.
func (f *FallbackGenerator) UsingFallback() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usingFallback
}
