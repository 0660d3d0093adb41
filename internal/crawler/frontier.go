package crawler

import "sync"

// TaskKind distinguishes catalog pages from detail pages
type TaskKind int

const (
	ListTask TaskKind = iota
	DetailTask
)

func (k TaskKind) String() string {
	switch k {
	case ListTask:
		return "list"
	case DetailTask:
		return "detail"
	default:
		return "unknown"
	}
}

// Task is one unit of work in the frontier
type Task struct {
	Kind TaskKind
	URL  string
}

// Frontier is the FIFO work queue of a single run. Each URL is accepted at
// most once per kind, so a catalog page is never fetched twice and a detail
// page is never dispatched twice within the run.
type Frontier struct {
	mu sync.Mutex

	tasks []Task
	seen  map[TaskKind]map[string]struct{}

	// Global counters
	enqueued int
	popped   int
}

// NewFrontier creates an empty frontier
func NewFrontier() *Frontier {
	return &Frontier{
		tasks: make([]Task, 0),
		seen: map[TaskKind]map[string]struct{}{
			ListTask:   make(map[string]struct{}),
			DetailTask: make(map[string]struct{}),
		},
	}
}

// Add enqueues task unless its URL was already accepted for the same kind
func (f *Frontier) Add(task Task) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if task.URL == "" {
		return false
	}

	set, ok := f.seen[task.Kind]
	if !ok {
		return false
	}
	if _, dup := set[task.URL]; dup {
		return false
	}

	set[task.URL] = struct{}{}
	f.tasks = append(f.tasks, task)
	f.enqueued++
	return true
}

// Next pops the oldest task
func (f *Frontier) Next() (Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.tasks) == 0 {
		return Task{}, false
	}

	task := f.tasks[0]
	f.tasks[0] = Task{}
	f.tasks = f.tasks[1:]
	f.popped++
	return task, true
}

// Stats returns how many tasks were accepted and handed out
func (f *Frontier) Stats() (enqueued, popped int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enqueued, f.popped
}

// Size returns the number of pending tasks
func (f *Frontier) Size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}
