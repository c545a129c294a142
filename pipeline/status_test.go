package pipeline_test

import (
	"testing"

	"github.com/storyvox/storyvox/pipeline"
)

func TestStageString(t *testing.T) {
	tests := []struct {
		stage pipeline.Stage
		want  string
	}{
		{pipeline.StageAnalyzing, "analyzing"},
		{pipeline.StageDetecting, "detecting"},
		{pipeline.StageAssigning, "assigning"},
		{pipeline.StageGenerating, "generating"},
		{pipeline.StageQualityCheck, "quality_check"},
		{pipeline.StageComplete, "complete"},
		{pipeline.StageError, "error"},
		{pipeline.Stage(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestStageTerminal(t *testing.T) {
	for _, stage := range []pipeline.Stage{
		pipeline.StageAnalyzing,
		pipeline.StageDetecting,
		pipeline.StageAssigning,
		pipeline.StageGenerating,
		pipeline.StageQualityCheck,
	} {
		if stage.Terminal() {
			t.Errorf("%s reported terminal", stage)
		}
	}
	if !pipeline.StageComplete.Terminal() {
		t.Error("complete not reported terminal")
	}
	if !pipeline.StageError.Terminal() {
		t.Error("error not reported terminal")
	}
}
