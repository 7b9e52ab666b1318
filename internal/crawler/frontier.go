package crawler

import "sync"

// Frontier is the visited-set/pending-queue pair driving breadth-first
// traversal. All operations are atomic: only one caller can transition a
// URL from "not seen" to "pending", so a URL is processed exactly once
// per run no matter how many pages link to it or how many workers pull
// from the queue.
//
// The pending queue is FIFO, which yields breadth-first order: every
// page discovered at depth N is enqueued before any depth-N+1 page is
// visited. With a single worker this makes the crawl order
// deterministic for a given site graph and start URL.
type Frontier struct {
	mu sync.Mutex

	// seen holds every URL ever offered or seeded. Membership here is
	// the claim that suppresses duplicate enqueues; it only grows.
	seen map[string]bool

	// pending is the FIFO queue of URLs waiting to be visited.
	pending []string

	// visited holds URLs whose capture attempt has completed.
	visited map[string]bool
}

// NewFrontier creates an empty frontier.
func NewFrontier() *Frontier {
	return &Frontier{
		seen:    make(map[string]bool),
		visited: make(map[string]bool),
	}
}

// Seed initializes the pending queue with the start URL.
func (f *Frontier) Seed(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[url] {
		return
	}
	f.seen[url] = true
	f.pending = append(f.pending, url)
}

// Next pops and returns the head of the pending queue.
// The second return value is false when the queue is empty.
func (f *Frontier) Next() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return "", false
	}
	url := f.pending[0]
	f.pending = f.pending[1:]
	return url, true
}

// Offer enqueues the URL unless it was ever seen before (pending,
// visited, or currently being captured). Returns true when the URL was
// accepted into the queue.
func (f *Frontier) Offer(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[url] {
		return false
	}
	f.seen[url] = true
	f.pending = append(f.pending, url)
	return true
}

// MarkVisited records that the URL's capture attempt has completed.
func (f *Frontier) MarkVisited(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited[url] = true
}

// PendingLen returns the number of URLs waiting to be visited.
func (f *Frontier) PendingLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// VisitedCount returns the number of completed URLs.
func (f *Frontier) VisitedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}

// SeenCount returns the number of distinct URLs ever accepted.
func (f *Frontier) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}
