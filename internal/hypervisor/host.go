// Package hypervisor provides the simulated host used to run the
// provisioning service end-to-end. A host has a fixed hardware model,
// transitions between UP and DOWN, and executes spawned servers on the
// simulation loop: a spawned server becomes ACTIVE after the boot delay and
// powers off on its own once its image's runtime elapses.
package hypervisor

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/virtustack/virtustack/internal/domain"
	"github.com/virtustack/virtustack/internal/sim"
)

// Ensure Host satisfies the contract the service consumes.
var _ domain.Host = (*Host)(nil)

// Host is a simulated hypervisor.
type Host struct {
	loop   *sim.Loop
	uid    uuid.UUID
	name   string
	model  domain.HostModel
	logger *zap.Logger

	state     domain.HostState
	listeners []domain.HostListener

	guests     map[uuid.UUID]*domain.Server
	usedCores  int
	usedMemory int64

	bootDelay int64
	spawnErr  error
}

// Option configures a simulated host.
type Option func(*Host)

// WithBootDelay sets the virtual milliseconds between spawn admission and
// the ACTIVE transition. The default is zero: the guest becomes ACTIVE on
// the next loop task.
func WithBootDelay(d int64) Option {
	return func(h *Host) {
		h.bootDelay = d
	}
}

// WithInitialState overrides the initial UP state.
func WithInitialState(state domain.HostState) Option {
	return func(h *Host) {
		h.state = state
	}
}

// New creates a simulated host in the UP state.
func New(loop *sim.Loop, uid uuid.UUID, name string, model domain.HostModel, logger *zap.Logger, opts ...Option) *Host {
	h := &Host{
		loop:   loop,
		uid:    uid,
		name:   name,
		model:  model,
		logger: logger.Named("hypervisor").With(zap.String("host", name)),
		state:  domain.HostStateUp,
		guests: make(map[uuid.UUID]*domain.Server),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) UID() uuid.UUID          { return h.uid }
func (h *Host) Name() string            { return h.name }
func (h *Host) Model() domain.HostModel { return h.model }
func (h *Host) State() domain.HostState { return h.state }

// CanFit reports whether the host's remaining capacity accommodates the
// server's flavor.
func (h *Host) CanFit(server *domain.Server) bool {
	return h.usedCores+server.Flavor.CPUCount <= h.model.CPUCount &&
		h.usedMemory+server.Flavor.MemorySize <= h.model.MemorySize
}

// Spawn admits the server and schedules its boot. The BUILD to ACTIVE
// transition is delivered through the listeners once the boot delay elapses;
// a finite image runtime schedules the eventual SHUTOFF.
func (h *Host) Spawn(server *domain.Server) error {
	if h.spawnErr != nil {
		err := h.spawnErr
		h.spawnErr = nil
		return err
	}
	if h.state != domain.HostStateUp {
		return fmt.Errorf("spawn %s on %s: %w", server.Name, h.name, domain.ErrHostDown)
	}
	if !h.CanFit(server) {
		return fmt.Errorf("spawn %s on %s: %w", server.Name, h.name, domain.ErrInsufficientCapacity)
	}

	h.usedCores += server.Flavor.CPUCount
	h.usedMemory += server.Flavor.MemorySize
	h.guests[server.UID] = server

	h.logger.Debug("Admitted server", zap.String("server", server.Name))

	h.loop.After(h.bootDelay, func() {
		h.bootGuest(server)
	})
	return nil
}

// AddListener registers a listener for host and guest transitions.
func (h *Host) AddListener(l domain.HostListener) {
	h.listeners = append(h.listeners, l)
}

// RemoveListener removes a previously registered listener.
func (h *Host) RemoveListener(l domain.HostListener) {
	for i, existing := range h.listeners {
		if existing == l {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			return
		}
	}
}

// SetState transitions the host and notifies listeners. Guests are neither
// stopped nor migrated on DOWN; their boot and power-off transitions are
// still reported while the host is DOWN.
func (h *Host) SetState(state domain.HostState) {
	if h.state == state {
		return
	}
	h.state = state

	h.logger.Info("Host state changed", zap.String("state", string(state)))

	for _, l := range h.snapshotListeners() {
		l.OnHostStateChanged(h, state)
	}
}

// StopServer powers a guest off, releasing its resources and reporting
// SHUTOFF to listeners. Unknown guests are ignored.
func (h *Host) StopServer(server *domain.Server) {
	if _, ok := h.guests[server.UID]; !ok {
		return
	}
	delete(h.guests, server.UID)
	h.usedCores -= server.Flavor.CPUCount
	h.usedMemory -= server.Flavor.MemorySize

	h.logger.Debug("Server powered off", zap.String("server", server.Name))

	for _, l := range h.snapshotListeners() {
		l.OnGuestStateChanged(h, server, domain.ServerStateShutoff)
	}
}

// FailNextSpawn makes the next Spawn call return err without admitting the
// server. Used to exercise the scheduler's rollback path.
func (h *Host) FailNextSpawn(err error) {
	h.spawnErr = err
}

// GuestCount returns the number of admitted servers.
func (h *Host) GuestCount() int {
	return len(h.guests)
}

// bootGuest completes a spawn: the guest goes ACTIVE and, for images with a
// finite runtime, its power-off is scheduled.
func (h *Host) bootGuest(server *domain.Server) {
	if _, ok := h.guests[server.UID]; !ok {
		return
	}

	for _, l := range h.snapshotListeners() {
		l.OnGuestStateChanged(h, server, domain.ServerStateActive)
	}

	if server.Image.Runtime > 0 {
		h.loop.After(server.Image.Runtime, func() {
			h.StopServer(server)
		})
	}
}

// snapshotListeners copies the listener slice so callbacks may register or
// remove listeners while a notification is in flight.
func (h *Host) snapshotListeners() []domain.HostListener {
	listeners := make([]domain.HostListener, len(h.listeners))
	copy(listeners, h.listeners)
	return listeners
}
