package domain

import (
	"github.com/google/uuid"
)

// ServerState represents the lifecycle state of a virtual machine.
type ServerState string

const (
	ServerStateBuild   ServerState = "BUILD"
	ServerStateActive  ServerState = "ACTIVE"
	ServerStateShutoff ServerState = "SHUTOFF"
	ServerStateError   ServerState = "ERROR"
)

// Flavor represents the resource shape requested by a VM.
type Flavor struct {
	CPUCount   int   `json:"cpu_count"`
	MemorySize int64 `json:"memory_size"`
}

// Image describes the workload a VM runs. The provisioning service treats it
// as an opaque value; the simulated hypervisor interprets Runtime as the
// number of virtual milliseconds the workload executes before the VM powers
// off on its own. A zero Runtime means the workload runs until stopped.
type Image struct {
	Name    string `json:"name"`
	Runtime int64  `json:"runtime,omitempty"`
}

// ServerWatcher observes state transitions of a single server.
type ServerWatcher interface {
	OnServerStateChanged(server *Server, state ServerState)
}

// Server represents a virtual machine request and its runtime identity.
type Server struct {
	UID    uuid.UUID `json:"uid"`
	Name   string    `json:"name"`
	Image  Image     `json:"image"`
	Flavor Flavor    `json:"flavor"`

	LaunchedAt int64 `json:"launched_at,omitempty"`

	state    ServerState
	watchers []ServerWatcher
}

// NewServer constructs a server in the BUILD state.
func NewServer(uid uuid.UUID, name string, image Image, flavor Flavor) *Server {
	return &Server{
		UID:    uid,
		Name:   name,
		Image:  image,
		Flavor: flavor,
		state:  ServerStateBuild,
	}
}

// State returns the current lifecycle state.
func (s *Server) State() ServerState {
	return s.state
}

// SetState updates the lifecycle state and notifies watchers in the order
// they were registered. Watchers are notified even when the state value is
// unchanged; reconciliation decides what to do with duplicates.
func (s *Server) SetState(state ServerState) {
	s.state = state
	for _, w := range s.watchers {
		w.OnServerStateChanged(s, state)
	}
}

// Watch registers a watcher. Watchers must not mutate the scheduling queue
// from their callback.
func (s *Server) Watch(w ServerWatcher) {
	s.watchers = append(s.watchers, w)
}

// Unwatch removes a previously registered watcher.
func (s *Server) Unwatch(w ServerWatcher) {
	for i, existing := range s.watchers {
		if existing == w {
			s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
			return
		}
	}
}

// IsTerminal returns true once the server has reached SHUTOFF.
func (s *Server) IsTerminal() bool {
	return s.state == ServerStateShutoff
}
