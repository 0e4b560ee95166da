package pagination

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Collect drains it into a slice and stops at the first page error.
// Items received before the error are returned alongside it.
func Collect[T any](ctx context.Context, it *Iterator[T]) ([]T, error) {
	var items []T
	for {
		item, err := it.Next(ctx)
		if errors.Is(err, Done) {
			return items, nil
		}
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
}

// FanOutConfig holds worker pool settings for FanOut.
type FanOutConfig struct {
	// MaxConcurrency is the number of iterators drained in parallel.
	MaxConcurrency int

	// Timeout bounds the time spent draining a single iterator.
	// Zero means no per-job timeout.
	Timeout time.Duration
}

// DefaultFanOutConfig returns a pool size suited to the public API rate.
func DefaultFanOutConfig() FanOutConfig {
	return FanOutConfig{
		MaxConcurrency: 4,
		Timeout:        2 * time.Minute,
	}
}

// Job is one independent iteration identified by Key.
type Job[T any] struct {
	Key      string
	Iterator *Iterator[T]
}

// JobResult holds the items collected for one job.
// Items may be partial when Err is set.
type JobResult[T any] struct {
	Key   string
	Items []T
	Err   error
}

// FanOut drains several iterators concurrently with a bounded worker pool.
//
// Each iterator keeps its own state and still requests one page at a
// time. Results are returned in job order. A failing job does not affect
// the others.
func FanOut[T any](ctx context.Context, cfg FanOutConfig, jobs []Job[T]) []JobResult[T] {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultFanOutConfig().MaxConcurrency
	}

	start := time.Now()
	results := make([]JobResult[T], len(jobs))
	queue := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < min(cfg.MaxConcurrency, len(jobs)); w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			processed := 0
			for i := range queue {
				results[i] = runJob(ctx, cfg, jobs[i])
				processed++
			}
			log.Debug().
				Int("worker_id", workerID).
				Int("jobs_processed", processed).
				Msg("Fan-out worker completed")
		}(w)
	}

	for i := range jobs {
		select {
		case queue <- i:
		case <-ctx.Done():
			results[i] = JobResult[T]{Key: jobs[i].Key, Err: ctx.Err()}
		}
	}
	close(queue)
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log.Info().
		Int("jobs", len(jobs)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Fan-out complete")

	return results
}

func runJob[T any](ctx context.Context, cfg FanOutConfig, job Job[T]) JobResult[T] {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	items, err := Collect(ctx, job.Iterator)
	if err != nil {
		log.Warn().
			Err(err).
			Str("key", job.Key).
			Int("partial_items", len(items)).
			Msg("Fan-out job failed")
	}
	return JobResult[T]{Key: job.Key, Items: items, Err: err}
}
