package scene

import (
	"github.com/pkg/errors"
	timer "github.com/xiaonanln/goTimer"

	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/config"
	"github.com/lunarisgames/netsession/engine/netutil"
	"github.com/lunarisgames/netsession/engine/nslog"
	"github.com/lunarisgames/netsession/engine/nsutils"
	"github.com/lunarisgames/netsession/engine/proto"
	"github.com/lunarisgames/netsession/engine/stats"
)

// Coordinator brokers world transitions. The host gates the Loaded state on
// every connected peer confirming its local load; the barrier rendezvous is
// a set of distinct peer IDs, never a counter, so duplicate or reordered
// confirmations are harmless.
type Coordinator struct {
	role      common.Role
	cfg       config.SceneConfig
	transport netutil.Transport
	peerCount func() int
	loader    Loader

	state    State
	world    string
	mode     LoadMode
	sequence uint32

	ready          common.PeerIDSet
	localLoaded    bool
	minTimeElapsed bool
	completedFired bool
	allReadyFired  bool

	additivePending common.StringSet
	unloadPending   common.StringSet

	onLoadStarted     []func(name string)
	onLoadProgress    []func(name string, ratio float64)
	onLoadCompleted   []func(name string)
	onAllReady        []func(name string)
	onUnloadStarted   []func(name string)
	onUnloadCompleted []func(name string)
}

// NewCoordinator creates a scene Coordinator. transport may be nil for
// offline sessions.
func NewCoordinator(role common.Role, cfg config.SceneConfig, transport netutil.Transport, loader Loader, peerCount func() int) *Coordinator {
	return &Coordinator{
		role:            role,
		cfg:             cfg,
		transport:       transport,
		peerCount:       peerCount,
		loader:          loader,
		state:           StateNone,
		ready:           common.PeerIDSet{},
		additivePending: common.StringSet{},
		unloadPending:   common.StringSet{},
	}
}

// State returns the current transition state
func (c *Coordinator) State() State {
	return c.state
}

// World returns the current target world name
func (c *Coordinator) World() string {
	return c.world
}

// ReadyCount returns the number of distinct peers that confirmed the load
func (c *Coordinator) ReadyCount() int {
	return len(c.ready)
}

// OnLoadStarted subscribes to load starts
func (c *Coordinator) OnLoadStarted(cb func(name string)) {
	c.onLoadStarted = append(c.onLoadStarted, cb)
}

// OnLoadProgress subscribes to local load progress reports
func (c *Coordinator) OnLoadProgress(cb func(name string, ratio float64)) {
	c.onLoadProgress = append(c.onLoadProgress, cb)
}

// OnLoadCompleted subscribes to local load completions
func (c *Coordinator) OnLoadCompleted(cb func(name string)) {
	c.onLoadCompleted = append(c.onLoadCompleted, cb)
}

// OnAllClientsReady subscribes to the all-peers-confirmed barrier
func (c *Coordinator) OnAllClientsReady(cb func(name string)) {
	c.onAllReady = append(c.onAllReady, cb)
}

// OnUnloadStarted subscribes to additive unload starts
func (c *Coordinator) OnUnloadStarted(cb func(name string)) {
	c.onUnloadStarted = append(c.onUnloadStarted, cb)
}

// OnUnloadCompleted subscribes to additive unload completions
func (c *Coordinator) OnUnloadCompleted(cb func(name string)) {
	c.onUnloadCompleted = append(c.onUnloadCompleted, cb)
}

// LoadWorld starts a full world transition. Host-only. If the loader rejects
// the request no state change survives.
func (c *Coordinator) LoadWorld(name string, mode LoadMode) error {
	if c.role != common.RoleHost {
		return errors.New("scene: LoadWorld is host-only")
	}
	if mode == ModeAdditive {
		return c.LoadAdditive(name)
	}
	if c.state == StateLoading || c.state == StateTransitioning {
		return errors.Errorf("scene: transition to %s already in progress", c.world)
	}

	c.state = StateTransitioning
	c.world = name
	c.mode = mode
	c.sequence++
	c.ready.Clear()
	c.localLoaded = false
	c.minTimeElapsed = false
	c.completedFired = false
	c.allReadyFired = false

	if err := c.loader.Load(name, ModeSingle); err != nil {
		// rejected load leaves no Loading state behind
		c.state = StateNone
		c.world = ""
		return errors.Wrapf(err, "scene: load %s rejected", name)
	}

	c.state = StateLoading
	c.broadcastState()
	c.broadcastLoad(name, mode, false)
	c.fire(c.onLoadStarted, name)

	seq := c.sequence
	if c.cfg.MinLoadingTime > 0 {
		timer.AddCallback(c.cfg.MinLoadingTime, func() {
			if c.sequence != seq {
				return
			}
			c.minTimeElapsed = true
			c.maybeCompleteLocal()
		})
	} else {
		c.minTimeElapsed = true
	}
	return nil
}

// LoadAdditive loads a world on top of the current one. Host-only; emits the
// started/completed pair but does not participate in the ready barrier.
func (c *Coordinator) LoadAdditive(name string) error {
	if c.role != common.RoleHost {
		return errors.New("scene: LoadAdditive is host-only")
	}
	if err := c.loader.Load(name, ModeAdditive); err != nil {
		return errors.Wrapf(err, "scene: additive load %s rejected", name)
	}
	c.additivePending.Add(name)
	c.broadcastLoad(name, ModeAdditive, false)
	c.fire(c.onLoadStarted, name)
	return nil
}

// UnloadAdditive unloads an additively loaded world. Host-only.
func (c *Coordinator) UnloadAdditive(name string) error {
	if c.role != common.RoleHost {
		return errors.New("scene: UnloadAdditive is host-only")
	}
	if err := c.loader.Unload(name); err != nil {
		return errors.Wrapf(err, "scene: unload %s rejected", name)
	}
	c.unloadPending.Add(name)
	c.broadcastLoad(name, ModeAdditive, true)
	c.fire(c.onUnloadStarted, name)
	return nil
}

// ReportProgress fans a local load progress report out to subscribers
func (c *Coordinator) ReportProgress(ratio float64) {
	name := c.world
	for _, cb := range c.onLoadProgress {
		cb := cb
		nsutils.RunPanicless(func() { cb(name, ratio) })
	}
}

// NotifyReady reports that the local load of the current full transition
// finished. Fires the local completion event on both roles; a peer also
// confirms readiness to the host, the host feeds its own barrier.
func (c *Coordinator) NotifyReady() {
	if c.localLoaded {
		return
	}
	c.localLoaded = true

	if c.role == common.RolePeer {
		c.maybeCompleteLocal()
		if c.transport == nil {
			return
		}
		data, err := proto.Pack(proto.MT_SCENE_READY, &proto.SceneReady{Name: c.world, Sequence: c.sequence})
		if err != nil {
			nslog.Errorf("scene: pack ready: %v", err)
			return
		}
		if err := c.transport.SendToServer(data); err != nil {
			nslog.Errorf("scene: send ready: %v", err)
		}
		return
	}

	c.maybeCompleteLocal()
	c.checkAllReady()
}

// AdditiveLoaded reports completion of an additive load
func (c *Coordinator) AdditiveLoaded(name string) {
	if !c.additivePending.Contains(name) {
		return
	}
	c.additivePending.Remove(name)
	c.fire(c.onLoadCompleted, name)
}

// AdditiveUnloaded reports completion of an additive unload
func (c *Coordinator) AdditiveUnloaded(name string) {
	if !c.unloadPending.Contains(name) {
		return
	}
	c.unloadPending.Remove(name)
	c.fire(c.onUnloadCompleted, name)
}

// HandlePeerReady accumulates a peer's readiness confirmation. Host side.
func (c *Coordinator) HandlePeerReady(peer common.PeerID, msg *proto.SceneReady) {
	if c.role != common.RoleHost {
		return
	}
	if msg.Sequence != c.sequence {
		nslog.Debugf("scene: stale ready from peer %d for %s (seq %d != %d)", peer, msg.Name, msg.Sequence, c.sequence)
		return
	}
	c.ready.Add(peer)
	c.broadcastState()
	c.checkAllReady()
}

// HandlePeerDisconnected re-evaluates the barrier when a peer leaves
func (c *Coordinator) HandlePeerDisconnected(peer common.PeerID) {
	c.ready.Del(peer)
	if c.role == common.RoleHost && c.state == StateLoading {
		c.checkAllReady()
	}
}

// HandleLoadRequest applies a host-initiated load on a peer
func (c *Coordinator) HandleLoadRequest(msg *proto.SceneLoad) {
	if c.role != common.RolePeer {
		return
	}
	if msg.Unload {
		c.unloadPending.Add(msg.Name)
		c.fire(c.onUnloadStarted, msg.Name)
		if err := c.loader.Unload(msg.Name); err != nil {
			nslog.Errorf("scene: local unload %s failed: %v", msg.Name, err)
		}
		return
	}

	if LoadMode(msg.Mode) == ModeSingle {
		c.world = msg.Name
		c.sequence = msg.Sequence
		c.localLoaded = false
		// the host enforces the minimum loading time, not the peer
		c.minTimeElapsed = true
		c.completedFired = false
		c.allReadyFired = false
		c.state = StateLoading
	} else {
		c.additivePending.Add(msg.Name)
	}
	c.fire(c.onLoadStarted, msg.Name)
	if err := c.loader.Load(msg.Name, LoadMode(msg.Mode)); err != nil {
		nslog.Errorf("scene: local load %s failed: %v", msg.Name, err)
	}
}

// HandleStateUpdate applies the host's replicated transition state on a peer.
// Host-origin state is ground truth; there is no local override.
func (c *Coordinator) HandleStateUpdate(msg *proto.SceneState) {
	if c.role != common.RolePeer {
		return
	}
	prev := c.state
	c.state = State(msg.State)
	c.world = msg.Name
	if prev != StateLoaded && c.state == StateLoaded && !c.allReadyFired {
		c.allReadyFired = true
		c.fire(c.onAllReady, c.world)
	}
}

func (c *Coordinator) maybeCompleteLocal() {
	if c.completedFired || !c.localLoaded || !c.minTimeElapsed {
		return
	}
	c.completedFired = true
	c.fire(c.onLoadCompleted, c.world)
}

func (c *Coordinator) checkAllReady() {
	if c.state != StateLoading || c.allReadyFired || !c.localLoaded {
		return
	}
	if len(c.ready) < c.peerCount() {
		return
	}
	c.allReadyFired = true
	c.state = StateLoaded
	c.broadcastState()
	stats.ScenesLoaded.Inc()
	c.fire(c.onAllReady, c.world)
}

func (c *Coordinator) broadcastState() {
	if c.transport == nil || c.role != common.RoleHost {
		return
	}
	data, err := proto.Pack(proto.MT_SCENE_STATE, &proto.SceneState{
		State:    int(c.state),
		Name:     c.world,
		Ready:    len(c.ready),
		Expected: c.peerCount(),
	})
	if err != nil {
		nslog.Errorf("scene: pack state: %v", err)
		return
	}
	if err := c.transport.Broadcast(data); err != nil {
		nslog.Warnf("scene: state broadcast failed: %v", err)
	}
}

func (c *Coordinator) broadcastLoad(name string, mode LoadMode, unload bool) {
	if c.transport == nil || c.role != common.RoleHost {
		return
	}
	data, err := proto.Pack(proto.MT_SCENE_LOAD, &proto.SceneLoad{
		Name:     name,
		Mode:     int(mode),
		Unload:   unload,
		Sequence: c.sequence,
	})
	if err != nil {
		nslog.Errorf("scene: pack load: %v", err)
		return
	}
	if err := c.transport.Broadcast(data); err != nil {
		nslog.Warnf("scene: load broadcast failed: %v", err)
	}
}

func (c *Coordinator) fire(cbs []func(string), name string) {
	for _, cb := range cbs {
		cb := cb
		nsutils.RunPanicless(func() { cb(name) })
	}
}
