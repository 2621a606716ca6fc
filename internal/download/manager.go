package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/dgnsrekt/auction-profile/internal/api"
	"github.com/dgnsrekt/auction-profile/internal/data"
	"github.com/dgnsrekt/auction-profile/internal/staging"
)

// Manager fetches bar series with a worker pool and writes them as JSONL
// into staging.
type Manager struct {
	client  data.BarSource
	staging *staging.Manager
	workers int
	resume  bool
	logger  *zap.Logger
}

type BatchResult struct {
	Total    int
	Success  int
	Skipped  int
	NotFound int
	Failed   int
	Bars     int
	Errors   []string
}

func NewManager(client data.BarSource, staging *staging.Manager, workers int, logger *zap.Logger) *Manager {
	return &Manager{
		client:  client,
		staging: staging,
		workers: workers,
		resume:  true,
		logger:  logger,
	}
}

// SetResume controls whether series already archived are skipped. With
// resume off every task refetches and replaces its archive.
func (m *Manager) SetResume(enabled bool) {
	m.resume = enabled
}

func (m *Manager) Execute(ctx context.Context, tasks []Task) (*BatchResult, error) {
	result := &BatchResult{Total: len(tasks)}

	if len(tasks) == 0 {
		return result, nil
	}

	jobs := make(chan Task, len(tasks))
	results := make(chan TaskResult, len(tasks))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < m.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			m.worker(ctx, workerID, jobs, results)
		}(i)
	}

	// Send jobs
	go func() {
		for _, task := range tasks {
			select {
			case <-ctx.Done():
				return
			case jobs <- task:
			}
		}
		close(jobs)
	}()

	// Wait for workers and close results
	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results
	for r := range results {
		if r.Skipped {
			result.Skipped++
		} else if r.NotFound {
			result.NotFound++
		} else if r.Success {
			result.Success++
			result.Bars += r.Bars
		} else {
			result.Failed++
			if r.Error != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", r.Task, r.Error))
			}
		}
	}

	return result, nil
}

func (m *Manager) worker(ctx context.Context, id int, jobs <-chan Task, results chan<- TaskResult) {
	for task := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result := m.processTask(ctx, task)

		select {
		case <-ctx.Done():
			return
		case results <- result:
		}
	}
}

func (m *Manager) processTask(ctx context.Context, task Task) TaskResult {
	result := TaskResult{Task: task}

	outputPath := task.OutputPath(m.staging.FinalDir())

	// Check if file exists (resume)
	if _, err := os.Stat(outputPath); m.resume && err == nil {
		m.logger.Debug("skipping existing file", zap.String("task", task.String()))
		result.Skipped = true
		result.Success = true
		return result
	}

	m.logger.Info("downloading", zap.String("task", task.String()))

	bars, err := m.client.FetchBars(ctx, task.Symbol, task.Interval, task.Range)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) || errors.Is(err, data.ErrNotFound) {
			m.logger.Debug("not found", zap.String("task", task.String()))
			result.NotFound = true
			return result
		}
		result.Error = err
		return result
	}
	if len(bars) == 0 {
		m.logger.Debug("no bars", zap.String("task", task.String()))
		result.NotFound = true
		return result
	}

	// Write to staging
	stagingPath := task.OutputPath(m.staging.StagingRoot())
	size, err := m.staging.WriteToStaging(stagingPath, func(w io.Writer) error {
		return data.WriteBarsJSONL(w, bars)
	})
	if err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	result.Bars = len(bars)
	result.BytesSize = size
	m.logger.Info("downloaded",
		zap.String("task", task.String()),
		zap.Int("bars", len(bars)),
		zap.Int64("bytes", size),
	)

	return result
}
