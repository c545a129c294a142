package pipeline

// Stage identifies where a run currently is in the pipeline.
type Stage int

const (
	// StageAnalyzing indicates text is being split into segments.
	StageAnalyzing Stage = iota
	// StageDetecting indicates characters are being extracted.
	StageDetecting
	// StageAssigning indicates voices are being bound to characters.
	StageAssigning
	// StageGenerating indicates per-segment audio is being rendered.
	StageGenerating
	// StageQualityCheck indicates the combined audio is being optimized.
	StageQualityCheck
	// StageComplete is the terminal state of a successful run.
	StageComplete
	// StageError is the terminal state of a failed or cancelled run.
	StageError
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageAnalyzing:
		return "analyzing"
	case StageDetecting:
		return "detecting"
	case StageAssigning:
		return "assigning"
	case StageGenerating:
		return "generating"
	case StageQualityCheck:
		return "quality_check"
	case StageComplete:
		return "complete"
	case StageError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the stage ends a run.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// Status is the orchestrator's progress snapshot. It is the only mutable
// entity in the pipeline model, owned exclusively by the orchestrator and
// overwritten whole, never merged, on every transition.
type Status struct {
	Stage       Stage
	Progress    int // 0 to 100
	Message     string
	CurrentItem string // Speaker being rendered during generation
}

// stageOrder fixes the forward sequence of a run. StageError is reachable
// from any stage and is therefore not part of the order.
var stageOrder = map[Stage]int{
	StageAnalyzing:    0,
	StageDetecting:    1,
	StageAssigning:    2,
	StageGenerating:   3,
	StageQualityCheck: 4,
	StageComplete:     5,
}

// validTransition reports whether moving from one stage to another keeps
// the pipeline order. Forward jumps are allowed so narrator mode can skip
// the detecting and assigning stages.
func validTransition(from, to Stage) bool {
	if to == StageError {
		return from != StageError
	}
	fromOrder, ok := stageOrder[from]
	if !ok {
		return false
	}
	toOrder, ok := stageOrder[to]
	if !ok {
		return false
	}
	return toOrder > fromOrder
}
