// Package voices provides the voice-assignment stage: it binds each
// detected character to a profile from a fixed catalog.
package voices

import (
	"context"

	"github.com/storyvox/storyvox/pipeline"
)

// Catalog returns the synthesizable voice profiles, narrator first. The
// narrator profile is reserved for narration segments and narrator-mode
// runs; characters draw from the rest.
func Catalog() []pipeline.VoiceProfile {
	return []pipeline.VoiceProfile{
		pipeline.DefaultNarratorVoice,
		{ID: "amber", Name: "Amber", Gender: "female", BaseHz: 210, WordsMin: 175},
		{ID: "briar", Name: "Briar", Gender: "male", BaseHz: 110, WordsMin: 160},
		{ID: "colm", Name: "Colm", Gender: "male", BaseHz: 95, WordsMin: 150},
		{ID: "delia", Name: "Delia", Gender: "female", BaseHz: 235, WordsMin: 185},
		{ID: "edda", Name: "Edda", Gender: "female", BaseHz: 190, WordsMin: 155},
		{ID: "fenn", Name: "Fenn", Gender: "neutral", BaseHz: 150, WordsMin: 170},
	}
}

// Lookup finds a profile by ID in the default catalog.
func Lookup(id string) (pipeline.VoiceProfile, bool) {
	return LookupIn(Catalog(), id)
}

// Assigner implements pipeline.VoiceAssigner over the fixed catalog.
// Assignment is deterministic for a given character list: primary
// characters claim distinct voices first, minor characters round-robin
// whatever remains. Confidence drops once the catalog is exhausted and
// voices have to be reused.
type Assigner struct {
	catalog []pipeline.VoiceProfile
}

// NewAssigner creates an assigner over the default catalog.
func NewAssigner() *Assigner {
	return &Assigner{catalog: Catalog()}
}

// AssignVoices returns one assignment per character. The narrator always
// receives the reserved narrator profile.
func (a *Assigner) AssignVoices(ctx context.Context, characters []pipeline.Character) pipeline.Result[[]pipeline.VoiceAssignment] {
	if err := ctx.Err(); err != nil {
		return pipeline.FailErr[[]pipeline.VoiceAssignment](err)
	}
	if len(characters) == 0 {
		return pipeline.Fail[[]pipeline.VoiceAssignment]("no characters to assign voices to")
	}

	pool := a.characterPool()
	if len(pool) == 0 {
		for _, c := range characters {
			if c.Name != pipeline.NarratorSpeaker {
				return pipeline.Failf[[]pipeline.VoiceAssignment](
					"voice catalog has no character voices for %q", c.Name)
			}
		}
	}

	assignments := make([]pipeline.VoiceAssignment, 0, len(characters))
	next := 0
	assign := func(c pipeline.Character) {
		if c.Name == pipeline.NarratorSpeaker {
			assignments = append(assignments, pipeline.VoiceAssignment{
				Character:  c.Name,
				Voice:      pipeline.DefaultNarratorVoice,
				Confidence: 1.0,
			})
			return
		}
		voice := pool[next%len(pool)]
		confidence := 0.9
		if c.Primary {
			confidence = 1.0
		}
		if next >= len(pool) {
			// Catalog exhausted; the voice is shared with another
			// character.
			confidence = 0.5
		}
		next++
		assignments = append(assignments, pipeline.VoiceAssignment{
			Character:  c.Name,
			Voice:      voice,
			Confidence: confidence,
		})
	}

	// Primaries first so they never share a voice while distinct ones
	// remain.
	for _, c := range characters {
		if c.Primary && c.Name != pipeline.NarratorSpeaker {
			assign(c)
		}
	}
	for _, c := range characters {
		if !c.Primary || c.Name == pipeline.NarratorSpeaker {
			assign(c)
		}
	}
	return pipeline.Ok(assignments)
}

// characterPool returns the catalog without the reserved narrator voice.
func (a *Assigner) characterPool() []pipeline.VoiceProfile {
	pool := make([]pipeline.VoiceProfile, 0, len(a.catalog))
	for _, v := range a.catalog {
		if v.ID != pipeline.DefaultNarratorVoice.ID {
			pool = append(pool, v)
		}
	}
	return pool
}
