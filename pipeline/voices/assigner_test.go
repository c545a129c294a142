package voices_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/storyvox/storyvox/pipeline"
	"github.com/storyvox/storyvox/pipeline/voices"
)

func TestCatalog(t *testing.T) {
	catalog := voices.Catalog()
	if len(catalog) < 2 {
		t.Fatal("catalog too small to assign distinct voices")
	}
	if catalog[0].ID != pipeline.DefaultNarratorVoice.ID {
		t.Errorf("first catalog entry = %q, want the narrator profile", catalog[0].ID)
	}

	seen := make(map[string]bool)
	for _, v := range catalog {
		if seen[v.ID] {
			t.Errorf("duplicate voice ID %q", v.ID)
		}
		seen[v.ID] = true
		if v.BaseHz <= 0 || v.WordsMin <= 0 {
			t.Errorf("voice %q has invalid parameters: %+v", v.ID, v)
		}
	}
}

func TestLookup(t *testing.T) {
	v, ok := voices.Lookup("amber")
	if !ok {
		t.Fatal("amber not found")
	}
	if v.Name != "Amber" {
		t.Errorf("name = %q", v.Name)
	}

	if _, ok := voices.Lookup("no-such-voice"); ok {
		t.Error("unknown ID resolved")
	}
}

func TestAssignVoicesEmpty(t *testing.T) {
	result := voices.NewAssigner().AssignVoices(context.Background(), nil)
	if result.Succeeded {
		t.Error("empty character list accepted")
	}
}

func TestAssignVoices(t *testing.T) {
	characters := []pipeline.Character{
		{Name: pipeline.NarratorSpeaker, Occurrences: 3},
		{Name: "Sarah", Occurrences: 4, Primary: true},
		{Name: "John", Occurrences: 2, Primary: true},
		{Name: "Clerk", Occurrences: 1},
	}

	result := voices.NewAssigner().AssignVoices(context.Background(), characters)
	if !result.Succeeded {
		t.Fatalf("assignment failed: %s", result.ErrorMessage)
	}
	assignments := result.Value
	if len(assignments) != len(characters) {
		t.Fatalf("got %d assignments, want %d", len(assignments), len(characters))
	}

	byCharacter := make(map[string]pipeline.VoiceAssignment)
	voiceUse := make(map[string]int)
	for _, a := range assignments {
		byCharacter[a.Character] = a
		voiceUse[a.Voice.ID]++
	}

	// Every character got a voice, and nobody shares one while the
	// catalog still has spares.
	for _, c := range characters {
		a, ok := byCharacter[c.Name]
		if !ok {
			t.Fatalf("no assignment for %q", c.Name)
		}
		if a.Voice.ID == "" {
			t.Errorf("%q assigned an empty voice", c.Name)
		}
	}
	for id, n := range voiceUse {
		if n > 1 {
			t.Errorf("voice %q shared by %d characters", id, n)
		}
	}

	if got := byCharacter[pipeline.NarratorSpeaker].Voice.ID; got != pipeline.DefaultNarratorVoice.ID {
		t.Errorf("narrator voice = %q, want the reserved profile", got)
	}
	if byCharacter[pipeline.NarratorSpeaker].Confidence != 1.0 {
		t.Error("narrator assignment should carry full confidence")
	}
	if byCharacter["Sarah"].Confidence != 1.0 {
		t.Error("primary character should carry full confidence")
	}
	if byCharacter["Clerk"].Confidence != 0.9 {
		t.Errorf("minor character confidence = %v, want 0.9", byCharacter["Clerk"].Confidence)
	}
}

func TestAssignVoicesDeterministic(t *testing.T) {
	characters := []pipeline.Character{
		{Name: "Sarah", Primary: true},
		{Name: "John"},
	}
	first := voices.NewAssigner().AssignVoices(context.Background(), characters)
	second := voices.NewAssigner().AssignVoices(context.Background(), characters)
	if !first.Succeeded || !second.Succeeded {
		t.Fatal("assignment failed")
	}
	for i := range first.Value {
		if first.Value[i].Voice.ID != second.Value[i].Voice.ID {
			t.Errorf("assignment %d differs between runs: %q vs %q",
				i, first.Value[i].Voice.ID, second.Value[i].Voice.ID)
		}
	}
}

func TestAssignVoicesNarratorOnlyCatalog(t *testing.T) {
	a := voices.NewAssignerWithCatalog([]pipeline.VoiceProfile{pipeline.DefaultNarratorVoice})

	// A named character cannot be voiced from a narrator-only catalog;
	// this must fail, not panic.
	result := a.AssignVoices(context.Background(), []pipeline.Character{{Name: "Sarah"}})
	if result.Succeeded {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.ErrorMessage, `"Sarah"`) {
		t.Errorf("error %q does not name the character", result.ErrorMessage)
	}

	// The narrator alone is still assignable.
	result = a.AssignVoices(context.Background(), []pipeline.Character{{Name: pipeline.NarratorSpeaker}})
	if !result.Succeeded {
		t.Fatalf("narrator-only assignment failed: %s", result.ErrorMessage)
	}
	if got := result.Value[0].Voice.ID; got != pipeline.DefaultNarratorVoice.ID {
		t.Errorf("narrator voice = %q", got)
	}
}

func TestAssignVoicesCatalogExhaustion(t *testing.T) {
	pool := len(voices.Catalog()) - 1 // narrator profile is reserved
	characters := make([]pipeline.Character, pool+2)
	for i := range characters {
		characters[i] = pipeline.Character{Name: fmt.Sprintf("Extra%d", i)}
	}

	result := voices.NewAssigner().AssignVoices(context.Background(), characters)
	if !result.Succeeded {
		t.Fatalf("assignment failed: %s", result.ErrorMessage)
	}

	shared := 0
	for _, a := range result.Value {
		if a.Voice.ID == "" {
			t.Fatalf("%q assigned an empty voice", a.Character)
		}
		if a.Confidence == 0.5 {
			shared++
		}
	}
	if shared != 2 {
		t.Errorf("%d low-confidence assignments, want 2 once the catalog is exhausted", shared)
	}
}
