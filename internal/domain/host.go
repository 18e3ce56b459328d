package domain

import (
	"github.com/google/uuid"
)

// HostState represents the availability of a hypervisor host.
type HostState string

const (
	HostStateUp   HostState = "UP"
	HostStateDown HostState = "DOWN"
)

// HostModel describes the hardware capacity of a hypervisor host.
type HostModel struct {
	CPUCount   int   `json:"cpu_count"`
	MemorySize int64 `json:"memory_size"`
}

// HostListener observes host availability and guest lifecycle transitions.
// Implementations must be total: no error may escape a callback.
type HostListener interface {
	// OnHostStateChanged is invoked when the host transitions UP or DOWN.
	OnHostStateChanged(host Host, state HostState)

	// OnGuestStateChanged is invoked when a server placed on the host
	// changes lifecycle state.
	OnGuestStateChanged(host Host, server *Server, state ServerState)
}

// Host is the contract the provisioning service consumes from a hypervisor.
// How a host executes workloads is outside the service; it only relies on
// the capacity model, the UP/DOWN state, and the spawn operation whose
// completion is observed through the listener.
type Host interface {
	UID() uuid.UUID
	Name() string
	Model() HostModel
	State() HostState

	// CanFit reports whether the host can currently accept the server.
	// It is advisory: the scheduler re-checks it after policy selection.
	CanFit(server *Server) bool

	// Spawn starts the server on the host. The call returns once the start
	// has been admitted; the BUILD to ACTIVE transition is delivered
	// asynchronously via the listener.
	Spawn(server *Server) error

	AddListener(l HostListener)
	RemoveListener(l HostListener)
}
