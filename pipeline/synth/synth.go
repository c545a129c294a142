// Package synth provides the audio-generation and audio-optimization
// stages. Clips are rendered as deterministic voice-parameterized PCM so
// the pipeline runs fully offline; the rendering is cached by clip
// identity across runs.
package synth

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/storyvox/storyvox/internal/cache"
	"github.com/storyvox/storyvox/pipeline"
)

// PCM parameters shared by every rendered clip.
const (
	SampleRate = 22050
	Channels   = 1
	BitDepth   = 16
)

// Synthesizer implements pipeline.AudioGenerator and
// pipeline.AudioOptimizer.
type Synthesizer struct {
	store  *cache.Store // nil disables caching
	logger *log.Logger
}

// NewSynthesizer creates a synthesizer without a clip cache.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{logger: log.Default()}
}

// NewCachedSynthesizer creates a synthesizer backed by a clip store.
func NewCachedSynthesizer(store *cache.Store) *Synthesizer {
	return &Synthesizer{store: store, logger: log.Default()}
}

// SetLogger replaces the default logger.
func (s *Synthesizer) SetLogger(logger *log.Logger) {
	s.logger = logger
}

// GenerateSegmentAudio renders one clip for a segment.
func (s *Synthesizer) GenerateSegmentAudio(ctx context.Context, segment pipeline.Segment, voice pipeline.VoiceProfile) pipeline.Result[pipeline.AudioClip] {
	if err := ctx.Err(); err != nil {
		return pipeline.FailErr[pipeline.AudioClip](err)
	}
	if strings.TrimSpace(segment.Content) == "" {
		return pipeline.Failf[pipeline.AudioClip]("segment %d has no content", segment.ID)
	}
	if voice.BaseHz <= 0 || voice.WordsMin <= 0 {
		return pipeline.Failf[pipeline.AudioClip]("invalid voice profile %q", voice.ID)
	}

	key := cache.ClipKey(segment.Content, voice.ID, voice.BaseHz, voice.WordsMin)
	if s.store != nil {
		if pcm, ok := s.store.Get(key); ok {
			s.logger.Debug("clip cache hit", "segment", segment.ID, "voice", voice.ID)
			return pipeline.Ok(s.clipFor(segment, voice, pcm))
		}
	}

	pcm := render(segment.Content, voice)
	if s.store != nil {
		if err := s.store.Put(key, pcm); err != nil {
			s.logger.Debug("clip cache store failed", "error", err)
		}
	}
	return pipeline.Ok(s.clipFor(segment, voice, pcm))
}

func (s *Synthesizer) clipFor(segment pipeline.Segment, voice pipeline.VoiceProfile, pcm []byte) pipeline.AudioClip {
	return pipeline.AudioClip{
		ID:       segment.ID,
		PCM:      pcm,
		Duration: PCMDuration(len(pcm)),
		Speaker:  segment.Speaker,
		Text:     segment.Content,
	}
}

// CombineClips concatenates clips in order into a single narration.
func (s *Synthesizer) CombineClips(ctx context.Context, clips []pipeline.AudioClip) pipeline.Result[*pipeline.Narration] {
	if err := ctx.Err(); err != nil {
		return pipeline.FailErr[*pipeline.Narration](err)
	}
	if len(clips) == 0 {
		return pipeline.Fail[*pipeline.Narration]("no clips to combine")
	}

	total := 0
	for _, clip := range clips {
		if len(clip.PCM) == 0 {
			return pipeline.Failf[*pipeline.Narration]("clip %d has no audio", clip.ID)
		}
		total += len(clip.PCM)
	}

	combined := make([]byte, 0, total)
	var duration time.Duration
	for _, clip := range clips {
		combined = append(combined, clip.PCM...)
		duration += clip.Duration
	}

	return pipeline.Ok(&pipeline.Narration{
		PCM:      combined,
		Duration: duration,
		Clips:    clips,
	})
}

// OptimizeAudio peak-normalizes the combined payload to a fixed headroom.
func (s *Synthesizer) OptimizeAudio(ctx context.Context, pcm []byte) pipeline.Result[[]byte] {
	if err := ctx.Err(); err != nil {
		return pipeline.FailErr[[]byte](err)
	}
	if len(pcm) == 0 {
		return pipeline.Fail[[]byte]("no audio to optimize")
	}
	if len(pcm)%2 != 0 {
		return pipeline.Failf[[]byte]("payload length %d is not sample aligned", len(pcm))
	}

	peak := 0
	for i := 0; i < len(pcm); i += 2 {
		v := int(int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8))
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		// Pure silence; nothing to scale.
		return pipeline.Ok(pcm)
	}

	const target = 0.9 * math.MaxInt16
	gain := target / float64(peak)
	if gain > 4 {
		// A gain this large means the signal is essentially noise floor;
		// boosting it would only amplify rendering artifacts.
		gain = 4
	}

	out := make([]byte, len(pcm))
	for i := 0; i < len(pcm); i += 2 {
		v := float64(int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8))
		scaled := int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, v*gain)))
		out[i] = byte(uint16(scaled))
		out[i+1] = byte(uint16(scaled) >> 8)
	}
	return pipeline.Ok(out)
}

// render produces deterministic PCM for the text in the given voice. The
// rendering is a amplitude-shaped tone at the voice's fundamental, one
// burst per word, at the voice's speaking rate.
func render(text string, voice pipeline.VoiceProfile) []byte {
	words := len(strings.Fields(text))
	if words == 0 {
		words = 1
	}
	seconds := float64(words) * 60.0 / float64(voice.WordsMin)
	samples := int(seconds * SampleRate)
	if samples == 0 {
		samples = 1
	}

	samplesPerWord := samples / words
	if samplesPerWord == 0 {
		samplesPerWord = 1
	}

	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		// Word envelope: rise and fall inside each word burst, with a
		// short gap between words.
		pos := i % samplesPerWord
		envelope := math.Sin(math.Pi * float64(pos) / float64(samplesPerWord))
		if float64(pos) > 0.85*float64(samplesPerWord) {
			envelope = 0
		}

		t := float64(i) / SampleRate
		sample := int16(0.4 * envelope * math.MaxInt16 * math.Sin(2*math.Pi*voice.BaseHz*t))
		out[2*i] = byte(uint16(sample))
		out[2*i+1] = byte(uint16(sample) >> 8)
	}
	return out
}
