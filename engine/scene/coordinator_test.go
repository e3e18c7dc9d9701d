package scene

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	timer "github.com/xiaonanln/goTimer"

	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/config"
	"github.com/lunarisgames/netsession/engine/proto"
)

type failLoader struct{}

func (failLoader) Load(name string, mode LoadMode) error {
	return errors.New("no such world")
}

func (failLoader) Unload(name string) error {
	return errors.New("no such world")
}

func newHostCoordinator(peers int) *Coordinator {
	return NewCoordinator(common.RoleHost, config.SceneConfig{}, nil, NopLoader{}, func() int { return peers })
}

func TestBarrierRequiresDistinctPeers(t *testing.T) {
	c := newHostCoordinator(2)

	started := ""
	c.OnLoadStarted(func(name string) { started = name })
	readyFired := 0
	c.OnAllClientsReady(func(name string) { readyFired++ })

	if err := c.LoadWorld("arena", ModeSingle); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateLoading || started != "arena" {
		t.Fatalf("load not started: state=%s started=%q", c.State(), started)
	}

	c.NotifyReady()
	if readyFired != 0 {
		t.Errorf("barrier fired before peers confirmed")
	}

	ready := &proto.SceneReady{Name: "arena", Sequence: 1}
	c.HandlePeerReady(1, ready)
	c.HandlePeerReady(1, ready) // duplicate counts once
	if c.ReadyCount() != 1 {
		t.Errorf("duplicate confirmation should count once, counted %d", c.ReadyCount())
	}
	if readyFired != 0 {
		t.Errorf("barrier fired with one of two peers ready")
	}

	c.HandlePeerReady(2, ready)
	if readyFired != 1 {
		t.Errorf("barrier should fire exactly once, fired %d", readyFired)
	}
	if c.State() != StateLoaded {
		t.Errorf("state should be %s, is %s", StateLoaded, c.State())
	}

	c.HandlePeerReady(2, ready) // after the barrier, harmless
	if readyFired != 1 {
		t.Errorf("barrier re-fired")
	}
}

func TestBarrierWaitsForLocalLoad(t *testing.T) {
	c := newHostCoordinator(1)
	fired := false
	c.OnAllClientsReady(func(string) { fired = true })

	c.LoadWorld("arena", ModeSingle)
	c.HandlePeerReady(1, &proto.SceneReady{Name: "arena", Sequence: 1})
	if fired {
		t.Errorf("barrier fired before the host loaded locally")
	}
	c.NotifyReady()
	if !fired {
		t.Errorf("barrier should fire once the host is loaded too")
	}
}

func TestRejectedLoadLeavesNoState(t *testing.T) {
	c := NewCoordinator(common.RoleHost, config.SceneConfig{}, nil, failLoader{}, func() int { return 0 })
	if err := c.LoadWorld("nowhere", ModeSingle); err == nil {
		t.Fatalf("rejected load should return the error")
	}
	if c.State() != StateNone {
		t.Errorf("rejected load must not leave state %s behind", c.State())
	}
	if c.World() != "" {
		t.Errorf("rejected load must not leave world %q behind", c.World())
	}

	// the coordinator accepts a new transition afterwards
	c.loader = NopLoader{}
	if err := c.LoadWorld("arena", ModeSingle); err != nil {
		t.Errorf("coordinator should recover from a rejected load: %v", err)
	}
}

func TestStaleReadyIgnored(t *testing.T) {
	c := newHostCoordinator(1)
	c.LoadWorld("first", ModeSingle)

	c.NotifyReady()
	c.HandlePeerReady(1, &proto.SceneReady{Name: "first", Sequence: 1})
	if c.State() != StateLoaded {
		t.Fatalf("first transition should complete")
	}

	c.LoadWorld("second", ModeSingle)
	c.HandlePeerReady(1, &proto.SceneReady{Name: "first", Sequence: 1})
	if c.ReadyCount() != 0 {
		t.Errorf("stale confirmation should be ignored")
	}
}

func TestPeerDisconnectReleasesBarrier(t *testing.T) {
	c := newHostCoordinator(2)
	fired := false
	c.OnAllClientsReady(func(string) { fired = true })

	c.LoadWorld("arena", ModeSingle)
	c.NotifyReady()
	c.HandlePeerReady(1, &proto.SceneReady{Name: "arena", Sequence: 1})

	// the second peer leaves instead of confirming
	c.peerCount = func() int { return 1 }
	c.HandlePeerDisconnected(2)
	if !fired {
		t.Errorf("barrier should release when the missing peer disconnects")
	}
}

func TestMinLoadingTime(t *testing.T) {
	cfg := config.SceneConfig{MinLoadingTime: time.Millisecond}
	c := NewCoordinator(common.RoleHost, cfg, nil, NopLoader{}, func() int { return 0 })

	completed := false
	c.OnLoadCompleted(func(string) { completed = true })

	c.LoadWorld("arena", ModeSingle)
	c.NotifyReady()
	if completed {
		t.Errorf("completed before the minimum loading time elapsed")
	}

	time.Sleep(time.Millisecond * 10)
	timer.Tick()
	if !completed {
		t.Errorf("completed should fire after the minimum loading time")
	}
}

func TestAdditiveLoadHasNoBarrier(t *testing.T) {
	c := newHostCoordinator(5)
	var started, completed, unloadDone []string
	c.OnLoadStarted(func(n string) { started = append(started, n) })
	c.OnLoadCompleted(func(n string) { completed = append(completed, n) })
	c.OnUnloadCompleted(func(n string) { unloadDone = append(unloadDone, n) })

	if err := c.LoadWorld("hud", ModeAdditive); err != nil {
		t.Fatal(err)
	}
	if c.State() != StateNone {
		t.Errorf("additive load must not drive the transition state")
	}
	if len(started) != 1 || started[0] != "hud" {
		t.Errorf("started events: %v", started)
	}

	c.AdditiveLoaded("hud")
	c.AdditiveLoaded("hud") // second report ignored
	if len(completed) != 1 {
		t.Errorf("completed should fire once, fired %d", len(completed))
	}

	c.UnloadAdditive("hud")
	c.AdditiveUnloaded("hud")
	if len(unloadDone) != 1 || unloadDone[0] != "hud" {
		t.Errorf("unload events: %v", unloadDone)
	}
}

func TestPeerAppliesHostState(t *testing.T) {
	c := NewCoordinator(common.RolePeer, config.SceneConfig{}, nil, NopLoader{}, func() int { return 0 })

	var started []string
	fired := 0
	c.OnLoadStarted(func(n string) { started = append(started, n) })
	c.OnAllClientsReady(func(n string) { fired++ })

	c.HandleLoadRequest(&proto.SceneLoad{Name: "arena", Mode: int(ModeSingle), Sequence: 3})
	if c.State() != StateLoading || c.World() != "arena" {
		t.Fatalf("peer should enter loading, state=%s world=%q", c.State(), c.World())
	}
	if len(started) != 1 {
		t.Errorf("started events: %v", started)
	}

	c.HandleStateUpdate(&proto.SceneState{State: int(StateLoading), Name: "arena", Ready: 1, Expected: 2})
	if fired != 0 {
		t.Errorf("all-ready fired early")
	}
	c.HandleStateUpdate(&proto.SceneState{State: int(StateLoaded), Name: "arena"})
	c.HandleStateUpdate(&proto.SceneState{State: int(StateLoaded), Name: "arena"})
	if fired != 1 {
		t.Errorf("all-ready should fire exactly once on the peer, fired %d", fired)
	}
}

func TestPeerRepeatedTransitions(t *testing.T) {
	c := NewCoordinator(common.RolePeer, config.SceneConfig{}, nil, NopLoader{}, func() int { return 0 })

	fired := 0
	c.OnAllClientsReady(func(n string) { fired++ })

	c.HandleLoadRequest(&proto.SceneLoad{Name: "arena", Mode: int(ModeSingle), Sequence: 1})
	c.HandleStateUpdate(&proto.SceneState{State: int(StateLoaded), Name: "arena"})
	if fired != 1 {
		t.Fatalf("first transition: all-ready fired %d times, want 1", fired)
	}

	c.HandleLoadRequest(&proto.SceneLoad{Name: "dunes", Mode: int(ModeSingle), Sequence: 2})
	if c.State() != StateLoading || c.World() != "dunes" {
		t.Fatalf("peer should re-enter loading, state=%s world=%q", c.State(), c.World())
	}
	c.HandleStateUpdate(&proto.SceneState{State: int(StateLoading), Name: "dunes", Ready: 0, Expected: 2})
	c.HandleStateUpdate(&proto.SceneState{State: int(StateLoaded), Name: "dunes"})
	if fired != 2 {
		t.Errorf("second transition: all-ready fired %d times total, want 2", fired)
	}
}

func TestPeerFiresLocalCompletion(t *testing.T) {
	c := NewCoordinator(common.RolePeer, config.SceneConfig{}, nil, NopLoader{}, func() int { return 0 })

	var completed []string
	c.OnLoadCompleted(func(n string) { completed = append(completed, n) })

	c.HandleLoadRequest(&proto.SceneLoad{Name: "arena", Mode: int(ModeSingle), Sequence: 1})
	c.NotifyReady()
	c.NotifyReady()
	if len(completed) != 1 || completed[0] != "arena" {
		t.Errorf("peer local completion events: %v", completed)
	}

	c.HandleLoadRequest(&proto.SceneLoad{Name: "dunes", Mode: int(ModeSingle), Sequence: 2})
	c.NotifyReady()
	if len(completed) != 2 || completed[1] != "dunes" {
		t.Errorf("peer local completion events after second transition: %v", completed)
	}
}

func TestLoadWorldHostOnly(t *testing.T) {
	c := NewCoordinator(common.RolePeer, config.SceneConfig{}, nil, NopLoader{}, func() int { return 0 })
	if err := c.LoadWorld("arena", ModeSingle); err == nil {
		t.Errorf("peer must not start transitions")
	}
}

func TestConcurrentTransitionRejected(t *testing.T) {
	c := newHostCoordinator(1)
	c.LoadWorld("first", ModeSingle)
	if err := c.LoadWorld("second", ModeSingle); err == nil {
		t.Errorf("a transition in flight should reject a second one")
	}
}
