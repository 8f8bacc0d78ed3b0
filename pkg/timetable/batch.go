package timetable

import (
	"context"
	"sync"
	"time"
)

// BatchConfig holds batch lookup configuration.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of parallel lookups
	MaxConcurrency int

	// Timeout per course lookup (search + detail)
	Timeout time.Duration
}

// DefaultBatchConfig returns the default batch configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		Timeout:        20 * time.Second,
	}
}

type lookupJob struct {
	index int
	code  string
}

// BatchLookup looks up every code in parallel with a bounded worker pool.
// Results are returned in input order; a cancelled context marks the
// remaining courses with the context error.
func (c *Client) BatchLookup(ctx context.Context, semester string, codes []string, cfg BatchConfig) []Result {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultBatchConfig().MaxConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBatchConfig().Timeout
	}

	start := time.Now()
	results := make([]Result, len(codes))
	if len(codes) == 0 {
		return results
	}

	workers := cfg.MaxConcurrency
	if workers > len(codes) {
		workers = len(codes)
	}

	jobs := make(chan lookupJob, len(codes))
	for i, code := range codes {
		jobs <- lookupJob{index: i, code: code}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go c.worker(ctx, semester, jobs, results, cfg.Timeout, &wg, i)
	}
	wg.Wait()

	found := 0
	for _, r := range results {
		if r.Found {
			found++
		}
	}

	c.logger.Info().
		Str("semester", semester).
		Int("courses", len(codes)).
		Int("found", found).
		Dur("duration", time.Since(start)).
		Msg("Batch lookup complete")

	return results
}

// worker processes courses from the queue. Each worker writes only the
// result slots of the jobs it took.
func (c *Client) worker(ctx context.Context, semester string, jobs <-chan lookupJob, results []Result, timeout time.Duration, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for job := range jobs {
		if err := ctx.Err(); err != nil {
			results[job.index] = Result{Course: job.code, Err: err}
			continue
		}

		jobCtx, cancel := context.WithTimeout(ctx, timeout)
		results[job.index] = c.Lookup(jobCtx, semester, job.code)
		cancel()

		processed++
	}

	if processed > 0 {
		c.logger.Debug().
			Int("worker_id", workerID).
			Int("courses_processed", processed).
			Msg("Worker completed")
	}
}
