package synth_test

import (
	"context"
	"testing"

	"github.com/storyvox/storyvox/pipeline"
	"github.com/storyvox/storyvox/pipeline/synth"
)

// countingGenerator is a controllable pipeline.AudioGenerator for
// fallback tests.
type countingGenerator struct {
	name     string
	failing  bool
	calls    int
	combines int
}

func (g *countingGenerator) GenerateSegmentAudio(ctx context.Context, segment pipeline.Segment, voice pipeline.VoiceProfile) pipeline.Result[pipeline.AudioClip] {
	g.calls++
	if g.failing {
		return pipeline.Fail[pipeline.AudioClip](g.name + " failed")
	}
	return pipeline.Ok(pipeline.AudioClip{ID: segment.ID, PCM: []byte(g.name)})
}

func (g *countingGenerator) CombineClips(ctx context.Context, clips []pipeline.AudioClip) pipeline.Result[*pipeline.Narration] {
	g.combines++
	return pipeline.Ok(&pipeline.Narration{Clips: clips})
}

func TestFallbackStaysOnHealthyPrimary(t *testing.T) {
	primary := &countingGenerator{name: "primary"}
	secondary := &countingGenerator{name: "secondary"}
	f := synth.NewFallbackGenerator(primary, secondary, 3)

	for i := 0; i < 5; i++ {
		res := f.GenerateSegmentAudio(context.Background(), testSegment("hello"), testVoice)
		if !res.Succeeded {
			t.Fatalf("generation failed: %s", res.ErrorMessage)
		}
		if string(res.Value.PCM) != "primary" {
			t.Fatal("healthy primary was bypassed")
		}
	}
	if secondary.calls != 0 {
		t.Errorf("secondary called %d times, want 0", secondary.calls)
	}
	if f.UsingFallback() {
		t.Error("switched over without failures")
	}
}

func TestFallbackSwitchesAfterThreshold(t *testing.T) {
	primary := &countingGenerator{name: "primary", failing: true}
	secondary := &countingGenerator{name: "secondary"}
	f := synth.NewFallbackGenerator(primary, secondary, 3)

	// Each failed primary attempt is covered by the secondary, so the
	// caller sees a success throughout.
	for i := 0; i < 5; i++ {
		res := f.GenerateSegmentAudio(context.Background(), testSegment("hello"), testVoice)
		if !res.Succeeded {
			t.Fatalf("attempt %d failed: %s", i, res.ErrorMessage)
		}
	}

	if !f.UsingFallback() {
		t.Error("threshold crossed without switching over")
	}
	// Three failing attempts, then the primary is no longer consulted.
	if primary.calls != 3 {
		t.Errorf("primary called %d times, want 3", primary.calls)
	}
	if secondary.calls != 5 {
		t.Errorf("secondary called %d times, want 5", secondary.calls)
	}
}

func TestFallbackPrimaryRecovery(t *testing.T) {
	primary := &countingGenerator{name: "primary", failing: true}
	secondary := &countingGenerator{name: "secondary"}
	f := synth.NewFallbackGenerator(primary, secondary, 3)

	// Two failures, then the primary recovers before the threshold.
	f.GenerateSegmentAudio(context.Background(), testSegment("a"), testVoice)
	f.GenerateSegmentAudio(context.Background(), testSegment("b"), testVoice)
	primary.failing = false

	res := f.GenerateSegmentAudio(context.Background(), testSegment("c"), testVoice)
	if !res.Succeeded || string(res.Value.PCM) != "primary" {
		t.Fatal("recovered primary not used")
	}
	if f.UsingFallback() {
		t.Error("switched over despite recovery")
	}

	// The failure count was reset: two more failures stay under the
	// threshold again.
	primary.failing = true
	f.GenerateSegmentAudio(context.Background(), testSegment("d"), testVoice)
	f.GenerateSegmentAudio(context.Background(), testSegment("e"), testVoice)
	if f.UsingFallback() {
		t.Error("stale failure count carried past recovery")
	}
}

func TestFallbackCombineFollowsActiveGenerator(t *testing.T) {
	primary := &countingGenerator{name: "primary"}
	secondary := &countingGenerator{name: "secondary"}
	f := synth.NewFallbackGenerator(primary, secondary, 1)

	f.CombineClips(context.Background(), nil)
	if primary.combines != 1 || secondary.combines != 0 {
		t.Error("combine did not use the primary before switchover")
	}

	primary.failing = true
	f.GenerateSegmentAudio(context.Background(), testSegment("x"), testVoice)

	f.CombineClips(context.Background(), nil)
	if secondary.combines != 1 {
		t.Error("combine did not follow the switchover")
	}
}
