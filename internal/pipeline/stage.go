package pipeline

import "time"

// Stage names a step of a run. The values appear in AnalysisResult.Degraded,
// the event log and metric labels.
type Stage string

const (
	StageFetching      Stage = "fetching"
	StageDeduplicating Stage = "deduplicating"
	StageQuickFilter   Stage = "quick_filtering"
	StageGrouping      Stage = "grouping"
	StageScoringPass1  Stage = "scoring_pass1"
	StageClassifying   Stage = "classifying_relevance"
	StageScoringPass2  Stage = "scoring_pass2"
	StageBlueprints    Stage = "generating_blueprints"
	StageAssembled     Stage = "assembled"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageFetching,
	StageDeduplicating,
	StageQuickFilter,
	StageGrouping,
	StageScoringPass1,
	StageClassifying,
	StageScoringPass2,
	StageBlueprints,
	StageAssembled,
}

// Label is the human-readable stage name.
func (s Stage) Label() string {
	switch s {
	case StageFetching:
		return "Fetching posts"
	case StageDeduplicating:
		return "Removing duplicates"
	case StageQuickFilter:
		return "Filtering for pain points"
	case StageGrouping:
		return "Grouping similar posts"
	case StageScoringPass1:
		return "Scoring candidates"
	case StageClassifying:
		return "Classifying relevance"
	case StageScoringPass2:
		return "Re-scoring shortlist"
	case StageBlueprints:
		return "Drafting blueprints"
	case StageAssembled:
		return "Done"
	}
	return string(s)
}

// StageEvent reports entry into a stage. Count is the number of items the
// stage starts with; for StageAssembled it is the number of findings.
type StageEvent struct {
	RunID   string
	Stage   Stage
	Count   int
	Elapsed time.Duration // since the run started
}

// StageObserver receives stage transitions. It is called synchronously from
// the goroutine running the pipeline and must not block.
type StageObserver func(StageEvent)
