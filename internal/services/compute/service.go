// Package compute provides the VM provisioning service. It accepts launch
// requests, keeps them in a FIFO queue, and drains the queue in scheduling
// cycles aligned to fixed quantum boundaries on the simulation clock,
// placing each request on a host chosen by the configured allocation policy.
package compute

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/virtustack/virtustack/internal/domain"
	"github.com/virtustack/virtustack/internal/scheduler"
	"github.com/virtustack/virtustack/internal/services/streaming"
	"github.com/virtustack/virtustack/internal/sim"
	"github.com/virtustack/virtustack/internal/telemetry"
)

// Ensure Service observes host transitions.
var _ domain.HostListener = (*Service)(nil)

// Service is the provisioning and scheduling service. All of its state is
// owned by the simulation loop: every method must be invoked from a loop
// task. Cross-goroutine callers interact through LaunchFuture handles and
// the event broker.
type Service struct {
	loop    *sim.Loop
	cfg     scheduler.Config
	policy  scheduler.AllocationPolicy
	broker  *streaming.Broker
	metrics *telemetry.Metrics
	uids    *domain.UIDSource
	logger  *zap.Logger

	queue  launchQueue
	views  []*scheduler.HostView
	byHost map[uuid.UUID]*scheduler.HostView
	up     map[uuid.UUID]struct{}
	active map[uuid.UUID]*domain.Server

	// elementwise maximum model over all ever-registered hosts; a request
	// exceeding it can never be placed and is rejected permanently.
	maxCores  int
	maxMemory int64

	submitted   int64
	queued      int64
	running     int64
	finished    int64
	unscheduled int64

	timerActive bool
	cycleTimer  *sim.Timer
	closed      bool
}

// Option configures the service.
type Option func(*Service)

// WithTelemetry mirrors the service counters onto Prometheus gauges.
func WithTelemetry(m *telemetry.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a provisioning service on the given loop. The
// configuration must have been validated; an invalid placement strategy
// falls back to first-fit.
func NewService(
	loop *sim.Loop,
	cfg scheduler.Config,
	broker *streaming.Broker,
	uids *domain.UIDSource,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	policy, err := cfg.Policy()
	if err != nil {
		policy = scheduler.FirstFit{}
	}

	s := &Service{
		loop:   loop,
		cfg:    cfg,
		policy: policy,
		broker: broker,
		uids:   uids,
		logger: logger.Named("compute-service"),
		byHost: make(map[uuid.UUID]*scheduler.HostView),
		up:     make(map[uuid.UUID]struct{}),
		active: make(map[uuid.UUID]*domain.Server),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================================
// Client surface
// ============================================================================

// NewServer submits a VM launch request. It constructs the server in BUILD
// state, enqueues it and requests a scheduling cycle. The returned future
// resolves once the scheduler places the server on a host, before the
// host's Spawn runs, so a later spawn failure is not reported through it; it
// stays pending while the request waits in the queue.
func (s *Service) NewServer(name string, image domain.Image, flavor domain.Flavor) (*LaunchFuture, error) {
	if s.closed {
		return nil, domain.ErrClientClosed
	}

	server := domain.NewServer(s.uids.Next(), name, image, flavor)
	future := newLaunchFuture()
	s.queue.push(&launchRequest{server: server, future: future})

	s.submitted++
	s.queued++

	s.logger.Info("Submitted server",
		zap.String("server", server.Name),
		zap.String("uid", server.UID.String()),
		zap.Int("cpu_count", flavor.CPUCount),
		zap.Int64("memory_size", flavor.MemorySize),
	)

	s.publish(streaming.EventVmSubmission, streaming.Submission{
		Name:       name,
		Image:      image.Name,
		CPUCount:   flavor.CPUCount,
		MemorySize: flavor.MemorySize,
	})
	s.publishMetrics()

	s.requestCycle()
	return future, nil
}

// Close marks the client closed. Subsequent NewServer calls fail with
// ErrClientClosed; already-submitted requests are not cancelled.
func (s *Service) Close() {
	s.closed = true
}

// Shutdown closes the client, disarms the cycle timer and cancels every
// still-pending launch future. Spawns already past the resolve point keep
// their effects on external hosts.
func (s *Service) Shutdown() {
	s.closed = true

	if s.cycleTimer != nil {
		s.cycleTimer.Stop()
		s.cycleTimer = nil
		s.timerActive = false
	}

	for s.queue.len() > 0 {
		req := s.queue.popFront()
		req.future.cancel(domain.ErrStopped)
	}

	s.logger.Info("Service shut down")
}

// ============================================================================
// Host registration
// ============================================================================

// AddHost registers a hypervisor host. The call is idempotent on the host's
// identity: re-adding a known host leaves all state untouched.
func (s *Service) AddHost(host domain.Host) {
	uid := host.UID()
	if _, ok := s.byHost[uid]; ok {
		s.logger.Debug("Host already registered", zap.String("host", host.Name()))
		return
	}

	view := scheduler.NewHostView(host)
	s.byHost[uid] = view
	s.views = append(s.views, view)

	model := host.Model()
	if model.CPUCount > s.maxCores {
		s.maxCores = model.CPUCount
	}
	if model.MemorySize > s.maxMemory {
		s.maxMemory = model.MemorySize
	}

	if host.State() == domain.HostStateUp {
		s.up[uid] = struct{}{}
	}
	host.AddListener(s)

	s.logger.Info("Registered host",
		zap.String("host", host.Name()),
		zap.String("uid", uid.String()),
		zap.Int("cpu_count", model.CPUCount),
		zap.Int64("memory_size", model.MemorySize),
	)
}

// RemoveHost detaches the service from the host's listener set. Servers
// already placed on the host remain tracked; their fate is undefined once
// the host stops reporting.
func (s *Service) RemoveHost(host domain.Host) {
	host.RemoveListener(s)
	s.logger.Info("Deregistered host listener", zap.String("host", host.Name()))
}

// ============================================================================
// Host listener
// ============================================================================

// OnHostStateChanged reconciles a host UP/DOWN transition with the
// available-set and re-triggers scheduling while work is queued.
func (s *Service) OnHostStateChanged(host domain.Host, state domain.HostState) {
	uid := host.UID()
	if _, ok := s.byHost[uid]; !ok {
		s.logger.Error("State change from unknown host", zap.String("host", host.Name()))
		return
	}

	switch state {
	case domain.HostStateUp:
		s.up[uid] = struct{}{}
		s.publish(streaming.EventHypervisorAvailable, streaming.Hypervisor{HostUID: uid.String()})
	case domain.HostStateDown:
		delete(s.up, uid)
		s.publish(streaming.EventHypervisorUnavailable, streaming.Hypervisor{HostUID: uid.String()})
	}

	s.logger.Info("Host state changed",
		zap.String("host", host.Name()),
		zap.String("state", string(state)),
	)

	if s.queue.len() > 0 {
		s.requestCycle()
	}
}

// OnGuestStateChanged reconciles a guest lifecycle transition: it updates
// the server and its watchers, and on SHUTOFF releases the reservation held
// against the host.
func (s *Service) OnGuestStateChanged(host domain.Host, server *domain.Server, state domain.ServerState) {
	server.SetState(state)

	if state != domain.ServerStateShutoff {
		return
	}

	if _, ok := s.active[server.UID]; !ok {
		s.logger.Error("Terminated server was not tracked as active",
			zap.String("server", server.Name),
		)
		return
	}
	delete(s.active, server.UID)
	s.running--
	s.finished++

	view, ok := s.byHost[host.UID()]
	if ok {
		view.Release(server.Flavor)
	} else {
		// unreachable under correct bookkeeping
		s.logger.Error("Terminated server reported by unknown host",
			zap.String("server", server.Name),
			zap.String("host", host.Name()),
		)
	}

	s.logger.Info("Server stopped",
		zap.String("server", server.Name),
		zap.String("host", host.Name()),
	)

	s.publish(streaming.EventVmStopped, streaming.Vm{Name: server.Name})
	s.publishMetrics()

	if s.queue.len() > 0 {
		s.requestCycle()
	}
}

// ============================================================================
// Scheduler core
// ============================================================================

// requestCycle arms the cycle timer for the next quantum boundary. At most
// one timer is armed at a time; requesting while armed is a no-op.
func (s *Service) requestCycle() {
	if s.timerActive {
		return
	}
	s.timerActive = true

	quantum := s.cfg.SchedulingQuantum
	delay := quantum - s.loop.Now()%quantum
	s.cycleTimer = s.loop.After(delay, s.runCycle)
}

// runCycle drains the queue head under capacity constraints. It stops at the
// first request that is feasible somewhere but cannot be placed right now;
// arrival order is preserved deliberately.
func (s *Service) runCycle() {
	s.timerActive = false
	s.cycleTimer = nil

	available := s.availableViews()

	for s.queue.len() > 0 {
		req := s.queue.front()
		server := req.server

		// 1. Ask the policy for a candidate, then re-check the host's own
		// capacity: the policy's view is advisory.
		candidate := s.policy.Select(available, server)
		if candidate != nil && !candidate.Host.CanFit(server) {
			candidate = nil
		}

		if candidate == nil {
			// 2. A request no registered host could ever satisfy is
			// rejected permanently; anything else blocks the head.
			if server.Flavor.MemorySize > s.maxMemory || server.Flavor.CPUCount > s.maxCores {
				s.queue.popFront()
				s.queued--
				s.unscheduled++

				s.logger.Warn("Rejecting infeasible submission",
					zap.String("server", server.Name),
					zap.Int("cpu_count", server.Flavor.CPUCount),
					zap.Int64("memory_size", server.Flavor.MemorySize),
					zap.Int("max_cores", s.maxCores),
					zap.Int64("max_memory", s.maxMemory),
				)

				s.publish(streaming.EventVmSubmissionInvalid, streaming.Vm{Name: server.Name})
				s.publishMetrics()
				continue
			}
			break
		}

		// 3. Commit: reserve capacity now so later decisions in this cycle
		// see it, then spawn asynchronously.
		s.queue.popFront()
		candidate.Reserve(server.Flavor)

		placement := req
		view := candidate
		s.loop.Post(func() {
			s.spawn(placement, view)
		})
	}
}

// spawn resolves the client and starts the server on the selected host,
// rolling the reservation back if the host refuses. The request is not
// re-enqueued on failure: the client already holds the handle.
func (s *Service) spawn(req *launchRequest, view *scheduler.HostView) {
	server := req.server
	server.LaunchedAt = s.loop.Now()

	req.future.resolve(server)

	if err := view.Host.Spawn(server); err != nil {
		view.Release(server.Flavor)
		s.logger.Error("Spawn failed, rolled back reservation",
			zap.String("server", server.Name),
			zap.String("host", view.Host.Name()),
			zap.Error(err),
		)
		return
	}

	s.active[server.UID] = server
	s.running++
	s.queued--

	s.logger.Info("Scheduled server",
		zap.String("server", server.Name),
		zap.String("host", view.Host.Name()),
	)

	s.publish(streaming.EventVmScheduled, streaming.Vm{Name: server.Name})
	s.publishMetrics()
}

// availableViews returns the views of UP hosts in registration order.
func (s *Service) availableViews() []*scheduler.HostView {
	available := make([]*scheduler.HostView, 0, len(s.up))
	for _, view := range s.views {
		if _, ok := s.up[view.Host.UID()]; ok {
			available = append(available, view)
		}
	}
	return available
}

// ============================================================================
// Observation
// ============================================================================

// Snapshot returns the current counter values. The identity
// submitted == running + finished + queued + unscheduled holds at every
// task boundary.
func (s *Service) Snapshot() streaming.Metrics {
	return streaming.Metrics{
		Service:            "compute",
		HostCount:          len(s.views),
		AvailableHostCount: len(s.up),
		Submitted:          s.submitted,
		Running:            s.running,
		Finished:           s.finished,
		Queued:             s.queued,
		Unscheduled:        s.unscheduled,
	}
}

// View returns the accounting record for a registered host, or nil.
func (s *Service) View(host domain.Host) *scheduler.HostView {
	return s.byHost[host.UID()]
}

// QueueDepth returns the number of requests waiting in the queue.
func (s *Service) QueueDepth() int {
	return s.queue.len()
}

func (s *Service) publish(eventType streaming.EventType, body interface{}) {
	s.broker.Publish(streaming.Event{
		Type: eventType,
		Time: s.loop.Now(),
		Body: body,
	})
}

func (s *Service) publishMetrics() {
	snapshot := s.Snapshot()
	if s.metrics != nil {
		s.metrics.Observe(snapshot)
	}
	s.broker.Publish(streaming.Event{
		Type: streaming.EventMetricsAvailable,
		Time: s.loop.Now(),
		Body: snapshot,
	})
}
