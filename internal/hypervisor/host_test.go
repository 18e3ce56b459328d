package hypervisor

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/virtustack/virtustack/internal/domain"
	"github.com/virtustack/virtustack/internal/sim"
)

type transition struct {
	server *domain.Server
	state  domain.ServerState
	at     int64
}

// recordingListener captures listener callbacks with their virtual times.
type recordingListener struct {
	loop        *sim.Loop
	hostStates  []domain.HostState
	transitions []transition
}

func (l *recordingListener) OnHostStateChanged(host domain.Host, state domain.HostState) {
	l.hostStates = append(l.hostStates, state)
}

func (l *recordingListener) OnGuestStateChanged(host domain.Host, server *domain.Server, state domain.ServerState) {
	l.transitions = append(l.transitions, transition{server: server, state: state, at: l.loop.Now()})
}

func newTestHost(loop *sim.Loop, cores int, memory int64, opts ...Option) (*Host, *recordingListener) {
	uids := domain.NewUIDSource(11)
	host := New(loop, uids.Next(), "host-00", domain.HostModel{CPUCount: cores, MemorySize: memory}, zap.NewNop(), opts...)
	listener := &recordingListener{loop: loop}
	host.AddListener(listener)
	return host, listener
}

var guestUIDs = domain.NewUIDSource(77)

func newGuest(name string, cores int, memory int64, runtime int64) *domain.Server {
	return domain.NewServer(guestUIDs.Next(), name, domain.Image{Name: "img", Runtime: runtime}, domain.Flavor{
		CPUCount:   cores,
		MemorySize: memory,
	})
}

// =============================================================================
// Tests
// =============================================================================

func TestHost_SpawnReportsActive(t *testing.T) {
	loop := sim.New()
	host, listener := newTestHost(loop, 4, 8192)
	guest := newGuest("vm-0", 2, 1024, 0)

	loop.At(10, func() {
		if err := host.Spawn(guest); err != nil {
			t.Fatalf("Spawn failed: %v", err)
		}
	})
	loop.Run(context.Background())

	if len(listener.transitions) != 1 {
		t.Fatalf("expected one transition, got %d", len(listener.transitions))
	}
	got := listener.transitions[0]
	if got.server != guest || got.state != domain.ServerStateActive || got.at != 10 {
		t.Errorf("unexpected transition %+v", got)
	}
	if host.GuestCount() != 1 {
		t.Errorf("expected 1 guest, got %d", host.GuestCount())
	}
}

func TestHost_BootDelayDefersActive(t *testing.T) {
	loop := sim.New()
	host, listener := newTestHost(loop, 4, 8192, WithBootDelay(25))
	guest := newGuest("vm-0", 2, 1024, 0)

	loop.At(10, func() { host.Spawn(guest) })
	loop.Run(context.Background())

	if len(listener.transitions) != 1 || listener.transitions[0].at != 35 {
		t.Errorf("expected ACTIVE at t=35, got %+v", listener.transitions)
	}
}

func TestHost_FiniteRuntimePowersOff(t *testing.T) {
	loop := sim.New()
	host, listener := newTestHost(loop, 4, 8192)
	guest := newGuest("vm-0", 2, 1024, 60)

	loop.At(0, func() { host.Spawn(guest) })
	loop.Run(context.Background())

	if len(listener.transitions) != 2 {
		t.Fatalf("expected ACTIVE then SHUTOFF, got %+v", listener.transitions)
	}
	if listener.transitions[1].state != domain.ServerStateShutoff || listener.transitions[1].at != 60 {
		t.Errorf("expected SHUTOFF at t=60, got %+v", listener.transitions[1])
	}
	if host.GuestCount() != 0 {
		t.Errorf("expected guest released, count = %d", host.GuestCount())
	}
	if !host.CanFit(newGuest("vm-1", 4, 8192, 0)) {
		t.Error("expected full capacity back after power off")
	}
}

func TestHost_CanFitTracksAdmittedGuests(t *testing.T) {
	loop := sim.New()
	host, _ := newTestHost(loop, 4, 8192)

	if err := host.Spawn(newGuest("vm-0", 3, 1024, 0)); err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	if host.CanFit(newGuest("vm-1", 3, 1024, 0)) {
		t.Error("expected 3+3 cores to exceed the 4-core model")
	}
	if !host.CanFit(newGuest("vm-2", 1, 1024, 0)) {
		t.Error("expected remaining core to fit")
	}
}

func TestHost_SpawnWhileDownFails(t *testing.T) {
	loop := sim.New()
	host, _ := newTestHost(loop, 4, 8192)
	host.SetState(domain.HostStateDown)

	err := host.Spawn(newGuest("vm-0", 1, 256, 0))
	if !errors.Is(err, domain.ErrHostDown) {
		t.Errorf("expected ErrHostDown, got %v", err)
	}
}

func TestHost_SpawnBeyondCapacityFails(t *testing.T) {
	loop := sim.New()
	host, _ := newTestHost(loop, 2, 1024)

	err := host.Spawn(newGuest("vm-0", 4, 256, 0))
	if !errors.Is(err, domain.ErrInsufficientCapacity) {
		t.Errorf("expected ErrInsufficientCapacity, got %v", err)
	}
}

func TestHost_FailNextSpawnConsumedOnce(t *testing.T) {
	loop := sim.New()
	host, _ := newTestHost(loop, 4, 8192)

	boom := errors.New("boom")
	host.FailNextSpawn(boom)

	if err := host.Spawn(newGuest("vm-0", 1, 256, 0)); !errors.Is(err, boom) {
		t.Errorf("expected injected failure, got %v", err)
	}
	if err := host.Spawn(newGuest("vm-1", 1, 256, 0)); err != nil {
		t.Errorf("expected next spawn to succeed, got %v", err)
	}
}

func TestHost_SetStateNotifiesListeners(t *testing.T) {
	loop := sim.New()
	host, listener := newTestHost(loop, 4, 8192)

	host.SetState(domain.HostStateDown)
	host.SetState(domain.HostStateDown) // no duplicate notification
	host.SetState(domain.HostStateUp)

	if len(listener.hostStates) != 2 ||
		listener.hostStates[0] != domain.HostStateDown ||
		listener.hostStates[1] != domain.HostStateUp {
		t.Errorf("unexpected host state notifications %v", listener.hostStates)
	}
}

func TestHost_RemoveListenerStopsNotifications(t *testing.T) {
	loop := sim.New()
	host, listener := newTestHost(loop, 4, 8192)

	host.RemoveListener(listener)
	host.SetState(domain.HostStateDown)

	if len(listener.hostStates) != 0 {
		t.Errorf("expected no notifications after removal, got %v", listener.hostStates)
	}
}
