package jobs

import (
	"sync"
	"sync/atomic"

	"github.com/winkey1/fbbot/pkg/types"
)

// Collector accumulates outcomes from concurrent workers. Outcomes are
// appended in completion order, never reordered or deduplicated.
type Collector struct {
	mu      sync.Mutex
	results []types.Outcome
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Append adds outcomes to the result list.
func (c *Collector) Append(outcomes ...types.Outcome) {
	if len(outcomes) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, outcomes...)
}

// Results returns a copy of the collected outcomes.
func (c *Collector) Results() []types.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.Outcome, len(c.results))
	copy(out, c.results)
	return out
}

// Run drives total work items through handle with at most concurrency
// workers. Each worker claims the next unclaimed index from a shared
// cursor, so no index is handled twice and no worker idles while items
// remain. Outcomes returned by handle are appended in completion
// order. Run returns only after every spawned worker has exited; a
// slow item never abandons its worker.
//
// Workers stop claiming once the job is cancelled; items already being
// handled run to their own cancellation checks.
func Run(job *Job, total, concurrency int, handle func(index int) []types.Outcome) []types.Outcome {
	collector := NewCollector()
	if total <= 0 {
		return collector.Results()
	}

	workers := concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup

	debugLog.Infof("[JOB %s] pool starting %d worker(s) over %d item(s)", job.ID(), workers, total)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if job.Cancelled() {
					return
				}
				index := int(cursor.Add(1)) - 1
				if index >= total {
					return
				}
				collector.Append(handle(index)...)
			}
		}()
	}

	wg.Wait()
	debugLog.Infof("[JOB %s] pool finished, %d outcome(s)", job.ID(), len(collector.Results()))
	return collector.Results()
}
