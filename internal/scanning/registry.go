package scanning

import (
	"context"
	"sort"
	"sync"
	"time"
)

// jobHandle is the execution handle of an active job.
type jobHandle struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// Registry tracks active and completed jobs. A job id lives in exactly one
// of the two maps; handles exist only for active jobs.
type Registry struct {
	mu        sync.RWMutex
	active    map[string]*ScanJob
	completed map[string]*ScanJob
	handles   map[string]*jobHandle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active:    make(map[string]*ScanJob),
		completed: make(map[string]*ScanJob),
		handles:   make(map[string]*jobHandle),
	}
}

func (r *Registry) add(job *ScanJob, h *jobHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[job.ID()] = job
	r.handles[job.ID()] = h
}

// Get looks in active jobs first, then completed.
func (r *Registry) Get(id string) (*ScanJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if job, ok := r.active[id]; ok {
		return job, true
	}
	job, ok := r.completed[id]
	return job, ok
}

func (r *Registry) activeJob(id string) (*ScanJob, *jobHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.active[id]
	if !ok {
		return nil, nil, false
	}
	return job, r.handles[id], true
}

// moveToCompleted moves an active job to the completed map and hands back
// its execution handle. Only the first caller for a job gets ok == true.
func (r *Registry) moveToCompleted(id string) (*jobHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.active[id]
	if !ok {
		return nil, false
	}
	delete(r.active, id)
	r.completed[id] = job
	h := r.handles[id]
	delete(r.handles, id)
	return h, true
}

// Active returns the active jobs ordered by start time.
func (r *Registry) Active() []*ScanJob {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedJobs(r.active)
}

// Completed returns the completed jobs ordered by start time.
func (r *Registry) Completed() []*ScanJob {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedJobs(r.completed)
}

// Counts returns the number of active and completed jobs.
func (r *Registry) Counts() (active, completed int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active), len(r.completed)
}

func (r *Registry) handlesSnapshot() []*jobHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*jobHandle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	return out
}

func sortedJobs(m map[string]*ScanJob) []*ScanJob {
	jobs := make([]*ScanJob, 0, len(m))
	for _, j := range m {
		jobs = append(jobs, j)
	}
	starts := make(map[*ScanJob]time.Time, len(jobs))
	for _, j := range jobs {
		j.mu.RLock()
		starts[j] = j.start
		j.mu.RUnlock()
	}
	sort.SliceStable(jobs, func(a, b int) bool {
		sa, sb := starts[jobs[a]], starts[jobs[b]]
		if sa.Equal(sb) {
			return jobs[a].id < jobs[b].id
		}
		return sa.Before(sb)
	})
	return jobs
}
