package compute

import (
	"context"

	"github.com/virtustack/virtustack/internal/domain"
)

// LaunchFuture is the one-shot completion handle associated with a launch
// request. It resolves at most once, when the scheduler hands the server to
// a host, or cancels during shutdown. A request rejected as globally
// infeasible leaves its future pending forever; callers bound the wait with
// the context passed to Await.
type LaunchFuture struct {
	done chan struct{}

	// written on the service loop before done is closed
	server *domain.Server
	err    error

	settled bool
}

func newLaunchFuture() *LaunchFuture {
	return &LaunchFuture{done: make(chan struct{})}
}

// resolve completes the future with a usable server handle. Only the first
// settlement takes effect.
func (f *LaunchFuture) resolve(server *domain.Server) {
	if f.settled {
		return
	}
	f.settled = true
	f.server = server
	close(f.done)
}

// cancel fails the future. A cancelled future never resolves.
func (f *LaunchFuture) cancel(err error) {
	if f.settled {
		return
	}
	f.settled = true
	f.err = err
	close(f.done)
}

// Done is closed once the future settles.
func (f *LaunchFuture) Done() <-chan struct{} {
	return f.done
}

// Server returns the placed server handle, or nil before resolution.
func (f *LaunchFuture) Server() *domain.Server {
	select {
	case <-f.done:
		return f.server
	default:
		return nil
	}
}

// Err returns the settlement error, or nil when pending or resolved.
func (f *LaunchFuture) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Await blocks until the future settles or the context expires. It is safe
// to call from any goroutine.
func (f *LaunchFuture) Await(ctx context.Context) (*domain.Server, error) {
	select {
	case <-f.done:
		return f.server, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
