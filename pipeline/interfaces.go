package pipeline

import "context"

// TextAnalyzer splits raw narrative text into ordered segments.
type TextAnalyzer interface {
	// ParseText parses the input text into segments.
	ParseText(ctx context.Context, text string) Result[[]Segment]
}

// CharacterDetector derives the set of speaking characters from the
// segment list.
type CharacterDetector interface {
	// DetectCharacters inspects the segments and returns the characters
	// they reference.
	DetectCharacters(ctx context.Context, segments []Segment) Result[[]Character]
}

// VoiceAssigner binds each detected character to a voice profile. The
// returned set must cover every distinct speaker referenced by any
// segment; the orchestrator fails the run for unresolved speakers.
type VoiceAssigner interface {
	// AssignVoices returns one assignment per character.
	AssignVoices(ctx context.Context, characters []Character) Result[[]VoiceAssignment]
}

// AudioGenerator renders audio for individual segments and combines the
// rendered clips into the final narration.
type AudioGenerator interface {
	// GenerateSegmentAudio renders one clip for the segment using the
	// given voice.
	GenerateSegmentAudio(ctx context.Context, segment Segment, voice VoiceProfile) Result[AudioClip]

	// CombineClips aggregates clips, in order, into a single narration.
	CombineClips(ctx context.Context, clips []AudioClip) Result[*Narration]
}

// AudioOptimizer runs a post-combine pass over the combined payload.
// Optimization failure is the only non-fatal failure in the pipeline.
type AudioOptimizer interface {
	// OptimizeAudio returns a replacement payload for the combined audio.
	OptimizeAudio(ctx context.Context, pcm []byte) Result[[]byte]
}
