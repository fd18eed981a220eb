package inv

// Stage names the part of a run a Progress update refers to.
type Stage string

const (
	StageWalk   Stage = "walk"
	StageHash   Stage = "hash"
	StageAccess Stage = "access"
)

// Progress is a point-in-time count for one stage. During the walk Total is
// the number of directories discovered so far, so it grows as the walk runs.
type Progress struct {
	Stage     Stage
	Processed int
	Total     int
}

// ProgressFunc receives progress updates. It is called from worker
// goroutines and must be safe for concurrent use and return quickly.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(stage Stage, processed, total int) {
	if f == nil {
		return
	}
	f(Progress{Stage: stage, Processed: processed, Total: total})
}
