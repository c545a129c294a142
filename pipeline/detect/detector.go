// Package detect provides the character-detection stage: it derives the
// set of speaking characters from the analyzed segments.
package detect

import (
	"context"
	"sort"
	"strings"

	"github.com/storyvox/storyvox/pipeline"
)

// Detector implements pipeline.CharacterDetector.
type Detector struct {
	// primaryShare is the fraction of attributed segments at or above
	// which a character is flagged primary.
	primaryShare float64
}

// NewDetector creates a detector with the default thresholds.
func NewDetector() *Detector {
	return &Detector{primaryShare: 0.25}
}

// traitHints maps reporting-verb cues in segment text to trait labels.
var traitHints = map[string]string{
	"whispered": "quiet",
	"muttered":  "quiet",
	"shouted":   "loud",
	"exclaimed": "loud",
	"cried":     "emotional",
	"wondered":  "thoughtful",
	"mused":     "thoughtful",
}

// DetectCharacters aggregates the distinct speakers referenced by the
// segments. The narrator is included whenever narration segments exist so
// that the assignment stage covers every speaker the generation loop will
// look up.
func (d *Detector) DetectCharacters(ctx context.Context, segments []pipeline.Segment) pipeline.Result[[]pipeline.Character] {
	if err := ctx.Err(); err != nil {
		return pipeline.FailErr[[]pipeline.Character](err)
	}
	if len(segments) == 0 {
		return pipeline.FailErr[[]pipeline.Character](pipeline.ErrNoSegments)
	}

	byName := make(map[string]*pipeline.Character)
	attributed := 0
	for _, segment := range segments {
		c, ok := byName[segment.Speaker]
		if !ok {
			c = &pipeline.Character{Name: segment.Speaker, FirstSeen: segment.Start}
			byName[segment.Speaker] = c
		}
		c.Occurrences++
		if segment.Speaker != pipeline.NarratorSpeaker {
			attributed++
			d.addTraits(c, segments, segment)
		}
	}

	characters := make([]pipeline.Character, 0, len(byName))
	for _, c := range byName {
		if c.Name != pipeline.NarratorSpeaker && attributed > 0 {
			share := float64(c.Occurrences) / float64(attributed)
			c.Primary = share >= d.primaryShare
		}
		characters = append(characters, *c)
	}

	// Stable output order: first appearance in the text.
	sort.Slice(characters, func(i, j int) bool {
		return characters[i].FirstSeen < characters[j].FirstSeen
	})
	return pipeline.Ok(characters)
}

// addTraits scans the narration around a character's segment for
// reporting-verb cues and records the matching trait once.
func (d *Detector) addTraits(c *pipeline.Character, segments []pipeline.Segment, seg pipeline.Segment) {
	// The attribution clause lives in the adjacent narration segment.
	for _, other := range segments {
		if other.Kind != pipeline.KindNarration {
			continue
		}
		if other.End != seg.Start && seg.End != other.Start {
			// Only directly adjacent narration can attribute this quote.
			continue
		}
		if !strings.Contains(other.Content, c.Name) {
			continue
		}
		lower := strings.ToLower(other.Content)
		for verb, trait := range traitHints {
			if strings.Contains(lower, verb) && !hasTrait(c, trait) {
				c.Traits = append(c.Traits, trait)
			}
		}
	}
}

func hasTrait(c *pipeline.Character, trait string) bool {
	for _, t := range c.Traits {
		if t == trait {
			return true
		}
	}
	return false
}
