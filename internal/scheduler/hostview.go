package scheduler

import (
	"github.com/virtustack/virtustack/internal/domain"
)

// HostView is the service's mutable accounting record for one registered
// host. Every server currently placed on the host contributes exactly once
// to all three counters until it reaches SHUTOFF.
//
// ProvisionedCores may exceed the host model's core count; oversubscription
// is a policy decision. AvailableMemory stays non-negative under correct
// bookkeeping.
type HostView struct {
	Host domain.Host

	NumberOfActiveServers int
	ProvisionedCores      int
	AvailableMemory       int64
}

// NewHostView creates the accounting record for a newly registered host.
func NewHostView(host domain.Host) *HostView {
	return &HostView{
		Host:            host,
		AvailableMemory: host.Model().MemorySize,
	}
}

// Reserve speculatively charges the flavor against the view. It is applied
// at decision time, before the asynchronous spawn completes, so placements
// decided later in the same cycle observe it.
func (v *HostView) Reserve(flavor domain.Flavor) {
	v.NumberOfActiveServers++
	v.ProvisionedCores += flavor.CPUCount
	v.AvailableMemory -= flavor.MemorySize
}

// Release reverses a reservation, either on spawn failure (rollback) or when
// the placed server reaches SHUTOFF.
func (v *HostView) Release(flavor domain.Flavor) {
	v.NumberOfActiveServers--
	v.ProvisionedCores -= flavor.CPUCount
	v.AvailableMemory += flavor.MemorySize
}

// fits reports whether the flavor fits within the host's unprovisioned
// capacity as seen by this view.
func (v *HostView) fits(flavor domain.Flavor) bool {
	return v.ProvisionedCores+flavor.CPUCount <= v.Host.Model().CPUCount &&
		flavor.MemorySize <= v.AvailableMemory
}
