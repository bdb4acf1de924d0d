// -----------------------------------------------------------------------
// Page queue - per-site frontier with visited-set dedup and hard caps
// -----------------------------------------------------------------------

package orchestrator

import (
	"github.com/ternarybob/forager/internal/common"
	"github.com/ternarybob/forager/internal/models"
)

// pageQueue is the breadth-first frontier for one site crawl. It owns
// the visited set; a URL is enqueued at most once and the total number
// of tasks ever enqueued (start page included) never exceeds maxPages.
// Not safe for concurrent use; each orchestrator owns exactly one.
type pageQueue struct {
	tasks    []models.PageTask
	seen     map[string]bool
	enqueued int
	maxPages int
	maxDepth int
}

func newPageQueue(maxPages, maxDepth int) *pageQueue {
	return &pageQueue{
		seen:     make(map[string]bool),
		maxPages: maxPages,
		maxDepth: maxDepth,
	}
}

// Push adds a task unless its URL was already seen, its depth exceeds
// the crawl depth limit, or the page budget is exhausted. Returns true
// when the task was queued.
func (q *pageQueue) Push(task models.PageTask) bool {
	url := common.NormalizeURL(task.URL)
	if url == "" {
		return false
	}
	if q.seen[url] {
		return false
	}
	if task.Depth > q.maxDepth {
		return false
	}
	if q.enqueued >= q.maxPages {
		return false
	}

	task.URL = url
	q.seen[url] = true
	q.enqueued++
	q.tasks = append(q.tasks, task)
	return true
}

// Pop removes the shallowest, earliest-queued task. Discovery appends
// children at depth+1, so scanning for the minimum depth keeps the
// traversal breadth-first even if pushes interleave.
func (q *pageQueue) Pop() (models.PageTask, bool) {
	if len(q.tasks) == 0 {
		return models.PageTask{}, false
	}

	best := 0
	for i := 1; i < len(q.tasks); i++ {
		if q.tasks[i].Depth < q.tasks[best].Depth {
			best = i
		}
	}

	task := q.tasks[best]
	q.tasks = append(q.tasks[:best], q.tasks[best+1:]...)
	return task, true
}

// Seen reports whether a URL is already visited or queued.
func (q *pageQueue) Seen(url string) bool {
	return q.seen[common.NormalizeURL(url)]
}

// Len returns the number of tasks waiting in the frontier.
func (q *pageQueue) Len() int {
	return len(q.tasks)
}

// Enqueued returns how many tasks were ever accepted, including ones
// already popped.
func (q *pageQueue) Enqueued() int {
	return q.enqueued
}
