package pipeline_test

import (
	"context"
	"testing"

	"github.com/storyvox/storyvox/pipeline"
	"github.com/storyvox/storyvox/pipeline/analysis"
	"github.com/storyvox/storyvox/pipeline/detect"
	"github.com/storyvox/storyvox/pipeline/synth"
	"github.com/storyvox/storyvox/pipeline/voices"
)

func realRegistry() *pipeline.Registry {
	registry := pipeline.NewRegistry()
	synthesizer := synth.NewSynthesizer()
	registry.Register(pipeline.CapTextAnalysis, analysis.NewAnalyzer())
	registry.Register(pipeline.CapCharacterDetection, detect.NewDetector())
	registry.Register(pipeline.CapVoiceAssignment, voices.NewAssigner())
	registry.Register(pipeline.CapAudioGeneration, synthesizer)
	registry.Register(pipeline.CapAudioOptimization, synthesizer)
	return registry
}

func TestEndToEnd(t *testing.T) {
	o := pipeline.New(realRegistry())

	result := o.ProcessStory(context.Background(), storyText, pipeline.Options{})
	if !result.Succeeded {
		t.Fatalf("run failed: %s", result.ErrorMessage)
	}

	narration := result.Value
	// Two narration clauses and two quotes.
	if narration.SegmentCount != 4 {
		t.Errorf("segment count = %d, want 4", narration.SegmentCount)
	}
	// Sarah and John; the narrator is not counted as a character.
	if narration.CharacterCount != 2 {
		t.Errorf("character count = %d, want 2", narration.CharacterCount)
	}
	if len(narration.PCM) == 0 {
		t.Fatal("no audio produced")
	}
	if err := synth.ValidatePCM(narration.PCM); err != nil {
		t.Errorf("combined audio invalid: %v", err)
	}
	if narration.Duration <= 0 {
		t.Error("no duration")
	}

	// Distinct speakers got distinct voices: the clips for Sarah and
	// John must differ even though both quotes are short.
	clipsBySpeaker := make(map[string]pipeline.AudioClip)
	for _, clip := range narration.Clips {
		clipsBySpeaker[clip.Speaker] = clip
	}
	for _, speaker := range []string{pipeline.NarratorSpeaker, "Sarah", "John"} {
		if _, ok := clipsBySpeaker[speaker]; !ok {
			t.Errorf("no clip for %q", speaker)
		}
	}

	status := o.ProcessingStatus().Value
	if status.Stage != pipeline.StageComplete || status.Progress != 100 {
		t.Errorf("final status = %s/%d", status.Stage, status.Progress)
	}
}

func TestEndToEndNarratorMode(t *testing.T) {
	o := pipeline.New(realRegistry())

	result := o.ProcessStory(context.Background(), storyText, pipeline.Options{Narrator: true})
	if !result.Succeeded {
		t.Fatalf("run failed: %s", result.ErrorMessage)
	}
	if result.Value.CharacterCount != 0 {
		t.Errorf("character count = %d, want 0 in narrator mode", result.Value.CharacterCount)
	}
	if len(result.Value.PCM) == 0 {
		t.Fatal("no audio produced")
	}
}

func TestEndToEndCompressedFormatOptimizes(t *testing.T) {
	o := pipeline.New(realRegistry())

	result := o.ProcessStory(context.Background(), storyText, pipeline.Options{
		Format: pipeline.FormatCompressed,
	})
	if !result.Succeeded {
		t.Fatalf("run failed: %s", result.ErrorMessage)
	}
	if !result.Value.Optimized {
		t.Error("compressed format did not run the optimization pass")
	}
}

func TestEndToEndEmptyInput(t *testing.T) {
	o := pipeline.New(realRegistry())

	result := o.ProcessStory(context.Background(), "   ", pipeline.Options{})
	if result.Succeeded {
		t.Fatal("blank story accepted")
	}
}
