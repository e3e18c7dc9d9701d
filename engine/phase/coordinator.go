package phase

import (
	"github.com/lunarisgames/netsession/engine/nslog"
	"github.com/lunarisgames/netsession/engine/nsutils"
	"github.com/lunarisgames/netsession/engine/post"
)

// Initializable is notified on every phase transition, for components that
// need multi-phase setup logic
type Initializable interface {
	OnPhase(p Phase)
}

// Coordinator gates when dependent subsystems may safely run. It never
// blocks a tick: waiting is expressed as per-tick countdowns, and all
// transitions are driven by the owning session goroutine.
type Coordinator struct {
	current        Phase
	queued         map[Phase][]func()
	initializables []Initializable
	deferred       *post.Queue

	holdTicks     int
	holdRemaining int
	holdTarget    Phase

	phaseStarted    []func(p Phase)
	phaseCompleted  []func(p Phase)
	onNetworkReady  []func()
	onSpawning      []func()
	onComplete      []func()
}

// NewCoordinator creates a Coordinator in PreNetwork. holdTicks is the number
// of processing ticks spent in NetworkReady and PostNetwork before advancing
// automatically.
func NewCoordinator(holdTicks int) *Coordinator {
	return &Coordinator{
		current:   PreNetwork,
		queued:    map[Phase][]func(){},
		deferred:  post.NewQueue(),
		holdTicks: holdTicks,
	}
}

// Current returns the current phase
func (c *Coordinator) Current() Phase {
	return c.current
}

// RegisterForPhase runs action when phase p begins. If the coordinator has
// already reached p the action runs synchronously before this call returns;
// either way it runs exactly once.
func (c *Coordinator) RegisterForPhase(p Phase, action func()) {
	if c.current >= p {
		nsutils.RunPanicless(action)
		return
	}
	c.queued[p] = append(c.queued[p], action)
}

// RegisterDeferred runs action on the next processing tick regardless of
// phase, for breaking same-tick ordering dependencies
func (c *Coordinator) RegisterDeferred(action func()) {
	c.deferred.Post(action)
}

// RegisterInitializable adds a handle notified on every phase transition
func (c *Coordinator) RegisterInitializable(h Initializable) {
	c.initializables = append(c.initializables, h)
}

// OnPhaseStarted subscribes to phase entries
func (c *Coordinator) OnPhaseStarted(cb func(p Phase)) {
	c.phaseStarted = append(c.phaseStarted, cb)
}

// OnPhaseCompleted subscribes to phase exits
func (c *Coordinator) OnPhaseCompleted(cb func(p Phase)) {
	c.phaseCompleted = append(c.phaseCompleted, cb)
}

// OnNetworkReady subscribes to entry of NetworkReady
func (c *Coordinator) OnNetworkReady(cb func()) {
	c.onNetworkReady = append(c.onNetworkReady, cb)
}

// OnSpawningStarted subscribes to entry of WaitingForSpawn
func (c *Coordinator) OnSpawningStarted(cb func()) {
	c.onSpawning = append(c.onSpawning, cb)
}

// OnComplete subscribes to entry of Complete
func (c *Coordinator) OnComplete(cb func()) {
	c.onComplete = append(c.onComplete, cb)
}

// Start begins the phased startup. With no transport configured the session
// is offline and the coordinator fast-forwards to Complete.
func (c *Coordinator) Start(offline bool) {
	if c.current != PreNetwork {
		return
	}
	if offline {
		nslog.Infof("phase: no transport, fast-forwarding to %s", Complete)
		c.advanceTo(Complete)
		return
	}
	c.advanceTo(WaitingForNetwork)
}

// NetworkUp reports that the transport is established
func (c *Coordinator) NetworkUp() {
	if c.current != WaitingForNetwork {
		return
	}
	c.advanceTo(NetworkReady)
}

// LocalPlayerReady reports that the local player entity is fully represented
func (c *Coordinator) LocalPlayerReady() {
	if c.current != WaitingForSpawn {
		return
	}
	c.advanceTo(PostNetwork)
}

// Tick drains deferred actions and advances hold countdowns. Called once per
// session tick.
func (c *Coordinator) Tick() {
	c.deferred.Tick()
	if c.holdRemaining > 0 {
		c.holdRemaining--
		if c.holdRemaining == 0 {
			c.advanceTo(c.holdTarget)
		}
	}
}

func (c *Coordinator) advanceTo(target Phase) {
	if target <= c.current {
		return
	}
	c.holdRemaining = 0
	for c.current < target {
		c.enter(c.current + 1)
	}
	c.scheduleHold()
}

// scheduleHold arms the tick countdown for phases with inherent delay
func (c *Coordinator) scheduleHold() {
	var next Phase
	switch c.current {
	case NetworkReady:
		next = WaitingForSpawn
	case PostNetwork:
		next = Complete
	default:
		return
	}
	if c.holdTicks <= 0 {
		c.advanceTo(next)
		return
	}
	c.holdTarget = next
	c.holdRemaining = c.holdTicks
}

func (c *Coordinator) enter(p Phase) {
	prev := c.current
	c.current = p
	nslog.Debugf("phase: %s -> %s", prev, p)

	// queued actions fully drain before initializables are notified
	actions := c.queued[p]
	delete(c.queued, p)
	for _, action := range actions {
		nsutils.RunPanicless(action)
	}

	for _, h := range c.initializables {
		h := h
		nsutils.RunPanicless(func() { h.OnPhase(p) })
	}

	for _, cb := range c.phaseCompleted {
		cb := cb
		nsutils.RunPanicless(func() { cb(prev) })
	}
	for _, cb := range c.phaseStarted {
		cb := cb
		nsutils.RunPanicless(func() { cb(p) })
	}

	var cbs []func()
	switch p {
	case NetworkReady:
		cbs = c.onNetworkReady
	case WaitingForSpawn:
		cbs = c.onSpawning
	case Complete:
		cbs = c.onComplete
	}
	for _, cb := range cbs {
		nsutils.RunPanicless(cb)
	}
}

// PendingDeferred returns the number of deferred actions not run yet
func (c *Coordinator) PendingDeferred() int {
	return c.deferred.Pending()
}

// PendingForPhase returns the number of actions still queued for phase p
func (c *Coordinator) PendingForPhase(p Phase) int {
	return len(c.queued[p])
}
