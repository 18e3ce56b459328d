package sim

import (
	"context"
	"testing"
)

func TestLoop_PostRunsFIFO(t *testing.T) {
	loop := New()

	var order []int
	loop.Post(func() { order = append(order, 1) })
	loop.Post(func() { order = append(order, 2) })
	loop.Post(func() { order = append(order, 3) })

	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected FIFO order [1 2 3], got %v", order)
	}
	if loop.Now() != 0 {
		t.Errorf("tasks must not advance time, now = %d", loop.Now())
	}
}

func TestLoop_TimersFireInTimestampOrder(t *testing.T) {
	loop := New()

	var fired []int64
	loop.At(30, func() { fired = append(fired, loop.Now()) })
	loop.At(10, func() { fired = append(fired, loop.Now()) })
	loop.At(20, func() { fired = append(fired, loop.Now()) })

	if err := loop.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(fired) != 3 || fired[0] != 10 || fired[1] != 20 || fired[2] != 30 {
		t.Errorf("expected firing times [10 20 30], got %v", fired)
	}
	if loop.Now() != 30 {
		t.Errorf("expected final time 30, got %d", loop.Now())
	}
}

func TestLoop_EqualTimestampsFireInArmingOrder(t *testing.T) {
	loop := New()

	var order []int
	loop.At(10, func() { order = append(order, 1) })
	loop.At(10, func() { order = append(order, 2) })
	loop.At(10, func() { order = append(order, 3) })

	loop.Run(context.Background())

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("expected arming order [1 2 3], got %v", order)
	}
}

func TestLoop_TasksDrainBeforeTimeAdvances(t *testing.T) {
	loop := New()

	var order []string
	loop.At(10, func() {
		loop.Post(func() { order = append(order, "posted") })
		loop.At(10, func() { order = append(order, "timer") })
		order = append(order, "first")
	})

	loop.Run(context.Background())

	if len(order) != 3 || order[0] != "first" || order[1] != "posted" || order[2] != "timer" {
		t.Errorf("expected [first posted timer], got %v", order)
	}
}

func TestLoop_AtClampsToNow(t *testing.T) {
	loop := New()

	var fired int64 = -1
	loop.At(50, func() {
		loop.At(10, func() { fired = loop.Now() })
	})

	loop.Run(context.Background())

	if fired != 50 {
		t.Errorf("past timestamp should fire at current time 50, got %d", fired)
	}
}

func TestLoop_StoppedTimerDoesNotFire(t *testing.T) {
	loop := New()

	fired := false
	timer := loop.At(100, func() { fired = true })
	timer.Stop()
	loop.At(10, func() {})

	loop.Run(context.Background())

	if fired {
		t.Error("stopped timer fired")
	}
	if loop.Now() != 10 {
		t.Errorf("stopped timer advanced time, now = %d", loop.Now())
	}
}

func TestLoop_RunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	loop := New()
	loop.At(10, func() { cancel() })
	loop.At(20, func() { t.Error("task ran after cancellation") })

	if err := loop.Run(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoop_AfterSchedulesRelative(t *testing.T) {
	loop := New()

	var fired int64
	loop.At(40, func() {
		loop.After(25, func() { fired = loop.Now() })
	})

	loop.Run(context.Background())

	if fired != 65 {
		t.Errorf("expected After to fire at 65, got %d", fired)
	}
}
