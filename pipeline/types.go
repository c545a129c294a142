package pipeline

import "time"

// SegmentKind classifies a text segment.
type SegmentKind int

const (
	// KindNarration is descriptive text spoken by the narrator.
	KindNarration SegmentKind = iota
	// KindDialogue is quoted speech attributed to a character.
	KindDialogue
	// KindThought is internal monologue attributed to a character.
	KindThought
)

// String returns the string representation of the segment kind.
func (k SegmentKind) String() string {
	switch k {
	case KindNarration:
		return "narration"
	case KindDialogue:
		return "dialogue"
	case KindThought:
		return "thought"
	default:
		return "unknown"
	}
}

// NarratorSpeaker is the speaker label attached to narration segments.
const NarratorSpeaker = "Narrator"

// Segment is one unit of text produced by text analysis. Segments are
// immutable once produced within a run.
type Segment struct {
	ID      int         // Index in original text order
	Content string      // Plain text content
	Speaker string      // Speaker label; NarratorSpeaker for narration
	Kind    SegmentKind // narration, dialogue, or thought
	Start   int         // Byte offset of the segment start in the input
	End     int         // Byte offset just past the segment end
}

// Character describes a speaker detected across the segment set.
type Character struct {
	Name        string   // Speaker label as it appears in segments
	Occurrences int      // Number of segments attributed to this speaker
	Traits      []string // Trait hints gathered from the text
	Primary     bool     // True for characters carrying most of the dialogue
	FirstSeen   int      // Byte offset of the first attributed segment
}

// VoiceProfile describes a synthesizable voice.
type VoiceProfile struct {
	ID       string  // Voice identifier
	Name     string  // Human-readable name
	Gender   string  // Voice gender
	BaseHz   float64 // Fundamental frequency of the rendered voice
	WordsMin int     // Speaking rate in words per minute
}

// VoiceAssignment binds one detected character to a voice profile.
type VoiceAssignment struct {
	Character  string
	Voice      VoiceProfile
	Confidence float64 // 0.0 to 1.0; lower when the catalog had to be reused
}

// AudioClip is the rendered audio for a single segment. Clips are created
// and owned by the generation stage and aggregated, not copied, into the
// final narration.
type AudioClip struct {
	ID       int    // Matches the source segment ID
	PCM      []byte // 16-bit little-endian mono samples
	Duration time.Duration
	Speaker  string
	Text     string // Source text the clip was rendered from
}

// Narration is the terminal artifact of a successful run. It is immutable
// once returned.
type Narration struct {
	PCM            []byte        // Combined audio payload
	Duration       time.Duration // Sum of clip durations
	Clips          []AudioClip   // In original segment order
	SegmentCount   int
	CharacterCount int
	ProcessingTime time.Duration
	Optimized      bool // True when the optimization pass was applied
}

// OutputFormat selects the rendering of the final payload.
type OutputFormat string

const (
	// FormatWAV wraps the combined PCM in a WAV container.
	FormatWAV OutputFormat = "wav"
	// FormatPCM emits the raw combined samples.
	FormatPCM OutputFormat = "pcm"
	// FormatCompressed requests a compressed rendering and always triggers
	// the optimization pass.
	FormatCompressed OutputFormat = "compressed"
)

// Options configures a single run.
type Options struct {
	Format OutputFormat

	// QualityAnalysis requests the post-combine quality pass regardless of
	// format or segment count.
	QualityAnalysis bool

	// Narrator selects the single-narrator pipeline: character detection
	// and voice assignment are skipped and every segment is rendered with
	// the narrator profile.
	Narrator bool

	// NarratorProfile is the voice used in narrator mode. The zero value
	// selects DefaultNarratorVoice.
	NarratorProfile VoiceProfile
}

// DefaultNarratorVoice is the voice used for narrator-mode runs when the
// options do not name one.
var DefaultNarratorVoice = VoiceProfile{
	ID:       "narrator",
	Name:     "Narrator",
	Gender:   "neutral",
	BaseHz:   130,
	WordsMin: 165,
}

// DefaultOptions returns the options used when the caller passes the zero
// value.
func DefaultOptions() Options {
	return Options{Format: FormatWAV}
}
