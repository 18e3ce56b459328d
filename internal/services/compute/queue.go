package compute

import (
	"github.com/virtustack/virtustack/internal/domain"
)

// launchRequest pairs a pending server with the completion handle that
// resolves the submitting client.
type launchRequest struct {
	server *domain.Server
	future *LaunchFuture
}

// launchQueue is the FIFO of pending launches. The scheduler drains it from
// the head only; a head that cannot be placed blocks everything behind it.
type launchQueue struct {
	items []*launchRequest
}

func (q *launchQueue) push(req *launchRequest) {
	q.items = append(q.items, req)
}

func (q *launchQueue) front() *launchRequest {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

func (q *launchQueue) popFront() *launchRequest {
	if len(q.items) == 0 {
		return nil
	}
	req := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return req
}

func (q *launchQueue) len() int {
	return len(q.items)
}
