package scheduler

import (
	"fmt"

	"github.com/virtustack/virtustack/internal/domain"
)

// AllocationPolicy selects a candidate host for a server from the hosts
// currently available. Implementations read HostView fields and the host
// model but never mutate service state; returning nil means no candidate.
type AllocationPolicy interface {
	Select(available []*HostView, server *domain.Server) *HostView
}

// NewPolicy returns the policy registered under the given strategy name.
func NewPolicy(strategy string) (AllocationPolicy, error) {
	switch strategy {
	case "first-fit":
		return FirstFit{}, nil
	case "active-balanced":
		return ActiveBalanced{}, nil
	case "memory-balanced":
		return MemoryBalanced{}, nil
	default:
		return nil, fmt.Errorf("unknown placement strategy %q", strategy)
	}
}

// FirstFit selects the first host, in registration order, with sufficient
// unprovisioned cores and memory.
type FirstFit struct{}

func (FirstFit) Select(available []*HostView, server *domain.Server) *HostView {
	for _, view := range available {
		if view.fits(server.Flavor) {
			return view
		}
	}
	return nil
}

// ActiveBalanced selects the fitting host with the fewest active servers,
// spreading load for availability. Ties resolve to registration order.
type ActiveBalanced struct{}

func (ActiveBalanced) Select(available []*HostView, server *domain.Server) *HostView {
	var best *HostView
	for _, view := range available {
		if !view.fits(server.Flavor) {
			continue
		}
		if best == nil || view.NumberOfActiveServers < best.NumberOfActiveServers {
			best = view
		}
	}
	return best
}

// MemoryBalanced selects the fitting host with the most available memory.
// Ties resolve to registration order.
type MemoryBalanced struct{}

func (MemoryBalanced) Select(available []*HostView, server *domain.Server) *HostView {
	var best *HostView
	for _, view := range available {
		if !view.fits(server.Flavor) {
			continue
		}
		if best == nil || view.AvailableMemory > best.AvailableMemory {
			best = view
		}
	}
	return best
}
