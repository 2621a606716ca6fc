package download

import (
	"fmt"
	"path/filepath"

	"github.com/dgnsrekt/auction-profile/internal/data"
)

// Task fetches one bar series and archives it under Date.
type Task struct {
	Symbol   string
	Interval string
	Range    string
	Date     string
}

// OutputPath is {baseDir}/{date}/{SYMBOL}/{interval}.jsonl, the layout
// data.NewMemorySource reads.
func (t Task) OutputPath(baseDir string) string {
	return filepath.Join(baseDir, t.Date, data.NormalizeSymbol(t.Symbol), t.Interval+".jsonl")
}

func (t Task) String() string {
	return fmt.Sprintf("%s/%s/%s?range=%s", t.Date, data.NormalizeSymbol(t.Symbol), t.Interval, t.Range)
}

// BuildTasks expands every symbol and interval into tasks for date.
func BuildTasks(symbols, intervals []string, rng, date string) []Task {
	tasks := make([]Task, 0, len(symbols)*len(intervals))
	for _, s := range symbols {
		for _, iv := range intervals {
			tasks = append(tasks, Task{Symbol: s, Interval: iv, Range: rng, Date: date})
		}
	}
	return tasks
}

type TaskResult struct {
	Task      Task
	Success   bool
	Skipped   bool
	NotFound  bool
	Bars      int
	BytesSize int64
	Error     error
}
