package phase

import "testing"

func TestOfflineFastForward(t *testing.T) {
	c := NewCoordinator(2)
	var entered []Phase
	c.OnPhaseStarted(func(p Phase) {
		entered = append(entered, p)
	})
	completed := false
	c.OnComplete(func() { completed = true })

	c.Start(true)
	if c.Current() != Complete {
		t.Errorf("offline start should reach %s, got %s", Complete, c.Current())
	}
	if !completed {
		t.Errorf("OnComplete not fired")
	}
	want := []Phase{WaitingForNetwork, NetworkReady, WaitingForSpawn, PostNetwork, Complete}
	if len(entered) != len(want) {
		t.Fatalf("entered %v", entered)
	}
	for i := range want {
		if entered[i] != want[i] {
			t.Errorf("phase %d should be %s, got %s", i, want[i], entered[i])
		}
	}
}

func TestOnlineProgression(t *testing.T) {
	c := NewCoordinator(2)
	c.Start(false)
	if c.Current() != WaitingForNetwork {
		t.Fatalf("should wait for network, got %s", c.Current())
	}

	c.NetworkUp()
	if c.Current() != NetworkReady {
		t.Fatalf("should be network ready, got %s", c.Current())
	}

	// the hold keeps the coordinator in NetworkReady for two ticks
	c.Tick()
	if c.Current() != NetworkReady {
		t.Errorf("advanced too early")
	}
	c.Tick()
	if c.Current() != WaitingForSpawn {
		t.Errorf("should advance to spawning, got %s", c.Current())
	}

	// a second NetworkUp must not move the phase backward or forward
	c.NetworkUp()
	if c.Current() != WaitingForSpawn {
		t.Errorf("NetworkUp should be ignored outside WaitingForNetwork")
	}

	c.LocalPlayerReady()
	if c.Current() != PostNetwork {
		t.Fatalf("should be post network, got %s", c.Current())
	}
	c.Tick()
	c.Tick()
	if c.Current() != Complete {
		t.Errorf("should be complete, got %s", c.Current())
	}
}

func TestRegisterForPhase(t *testing.T) {
	c := NewCoordinator(0)
	runs := 0
	c.RegisterForPhase(NetworkReady, func() { runs++ })
	if runs != 0 {
		t.Errorf("action ran before its phase")
	}

	c.Start(false)
	c.NetworkUp()
	if runs != 1 {
		t.Errorf("action should run once on entry, ran %d", runs)
	}

	// late registration runs synchronously, exactly once
	c.RegisterForPhase(NetworkReady, func() { runs++ })
	if runs != 2 {
		t.Errorf("late action should run synchronously, runs=%d", runs)
	}
	if c.PendingForPhase(NetworkReady) != 0 {
		t.Errorf("no actions should stay queued")
	}
}

func TestRegisterForPhasePanicIsolated(t *testing.T) {
	c := NewCoordinator(0)
	ran := false
	c.RegisterForPhase(NetworkReady, func() { panic("boom") })
	c.RegisterForPhase(NetworkReady, func() { ran = true })
	c.Start(false)
	c.NetworkUp()
	if !ran {
		t.Errorf("action after panicking action should still run")
	}
	if c.Current() < NetworkReady {
		t.Errorf("panic should not stall the phase machine")
	}
}

func TestRegisterDeferred(t *testing.T) {
	c := NewCoordinator(0)
	ran := false
	c.RegisterDeferred(func() { ran = true })
	if ran {
		t.Errorf("deferred action ran immediately")
	}
	c.Tick()
	if !ran {
		t.Errorf("deferred action should run on the next tick")
	}
	if c.PendingDeferred() != 0 {
		t.Fail()
	}
}

func TestZeroHoldTicks(t *testing.T) {
	c := NewCoordinator(0)
	c.Start(false)
	c.NetworkUp()
	if c.Current() != WaitingForSpawn {
		t.Errorf("zero hold should advance immediately, got %s", c.Current())
	}
	c.LocalPlayerReady()
	if c.Current() != Complete {
		t.Errorf("zero hold should reach complete, got %s", c.Current())
	}
}

func TestPhasesAreMonotonic(t *testing.T) {
	c := NewCoordinator(0)
	var seen []Phase
	c.OnPhaseStarted(func(p Phase) { seen = append(seen, p) })
	c.Start(false)
	c.NetworkUp()
	c.LocalPlayerReady()
	c.Start(false) // replays are ignored
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Errorf("phase went backwards: %v", seen)
		}
	}
}
