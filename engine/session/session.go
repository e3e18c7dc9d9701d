package session

import (
	"os"
	"time"

	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	timer "github.com/xiaonanln/goTimer"

	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/config"
	"github.com/lunarisgames/netsession/engine/entity"
	"github.com/lunarisgames/netsession/engine/netutil"
	"github.com/lunarisgames/netsession/engine/nslog"
	"github.com/lunarisgames/netsession/engine/phase"
	"github.com/lunarisgames/netsession/engine/post"
	"github.com/lunarisgames/netsession/engine/router"
	"github.com/lunarisgames/netsession/engine/scene"
	"github.com/lunarisgames/netsession/engine/spawn"
	"github.com/lunarisgames/netsession/engine/stats"
	"github.com/lunarisgames/netsession/engine/vars"
)

const (
	rsNotRunning = iota
	rsRunning
	rsTerminating
	rsTerminated
)

// Options configures a Session
type Options struct {
	Role common.Role
	// Config defaults to config.Get() when nil
	Config *config.SessionConfig
	// Transport is nil for an offline (single-player) session
	Transport netutil.Transport
	// Loader defaults to scene.NopLoader when nil
	Loader scene.Loader
}

// localIdentifier is implemented by transports that know their own peer ID
// without a welcome (the loopback endpoint does)
type localIdentifier interface {
	LocalID() common.PeerID
}

// Session is the top-level object of one multiplayer session. It owns the
// coordination services, the connected-peer set and the tick loop; all
// services run on the session goroutine.
type Session struct {
	role      common.Role
	cfg       *config.SessionConfig
	transport netutil.Transport
	localPeer common.PeerID

	entities  *entity.Manager
	phases    *phase.Coordinator
	spawner   *spawn.Coordinator
	scenes    *scene.Coordinator
	variables *vars.Manager
	messages  *router.Router
	postQueue *post.Queue

	peers common.PeerIDSet

	onPeerConnected    []func(peer common.PeerID)
	onPeerDisconnected []func(peer common.PeerID)

	runState xnsyncutil.AtomicInt
}

// New creates a fully wired Session
func New(opts Options) *Session {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Get()
	}
	loader := opts.Loader
	if loader == nil {
		loader = scene.NopLoader{}
	}

	s := &Session{
		role:      opts.Role,
		cfg:       cfg,
		transport: opts.Transport,
		peers:     common.PeerIDSet{},
		postQueue: post.NewQueue(),
	}
	nslog.SetLevel(nslog.StringToLevel(cfg.LogLevel))
	nslog.SetSource(opts.Role.String())
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			nslog.SetOutput(f)
		} else {
			nslog.Errorf("session: open log file %s: %v", cfg.LogFile, err)
		}
	}

	if opts.Role == common.RoleHost {
		s.localPeer = common.HostPeerID
	} else if li, ok := opts.Transport.(localIdentifier); ok {
		s.localPeer = li.LocalID()
	}

	peerCount := func() int { return len(s.peers) }
	s.entities = entity.NewManager(s.localPeer)
	s.phases = phase.NewCoordinator(cfg.PhaseHoldTicks)
	s.variables = vars.NewManager(opts.Role, s.localPeer, opts.Transport)
	s.variables.SetDefaultSyncRate(cfg.Vars.DefaultSyncRate)
	s.messages = router.NewRouter(opts.Role, s.localPeer, opts.Transport, s.entities)
	s.spawner = spawn.NewCoordinator(opts.Role, cfg.Spawn, s.entities, opts.Transport, peerCount)
	s.scenes = scene.NewCoordinator(opts.Role, cfg.Scene, opts.Transport, loader, peerCount)

	// spawning begins once the network phase is reached
	s.phases.OnNetworkReady(s.spawner.Enable)
	if opts.Role == common.RoleHost {
		// the host has no replicated representation to wait for
		s.phases.OnSpawningStarted(s.phases.LocalPlayerReady)
	}
	s.phases.OnPhaseStarted(func(p phase.Phase) { stats.PhaseTransitions.Inc() })
	// the local player becoming fully represented advances the startup
	s.spawner.AfterPlayerSpawn(func(e *entity.Entity) {
		if e.Owner == s.localPeer {
			s.phases.LocalPlayerReady()
		}
	})

	if cfg.HTTPPort > 0 {
		stats.ServeHTTP(cfg.HTTPIp, cfg.HTTPPort)
	}
	return s
}

// Role returns the session role
func (s *Session) Role() common.Role {
	return s.role
}

// LocalPeer returns the local peer ID. On a remote peer the ID is zero until
// the host's welcome arrives.
func (s *Session) LocalPeer() common.PeerID {
	return s.localPeer
}

// PeerCount returns the number of currently connected peers
func (s *Session) PeerCount() int {
	return len(s.peers)
}

// Entities returns the entity manager
func (s *Session) Entities() *entity.Manager {
	return s.entities
}

// Phases returns the initialization coordinator
func (s *Session) Phases() *phase.Coordinator {
	return s.phases
}

// Spawner returns the spawn coordinator
func (s *Session) Spawner() *spawn.Coordinator {
	return s.spawner
}

// Scenes returns the scene transition coordinator
func (s *Session) Scenes() *scene.Coordinator {
	return s.scenes
}

// Vars returns the replicated variable manager
func (s *Session) Vars() *vars.Manager {
	return s.variables
}

// Router returns the message router
func (s *Session) Router() *router.Router {
	return s.messages
}

// Post schedules a callback on the next session tick
func (s *Session) Post(f func()) {
	s.postQueue.Post(f)
}

// OnPeerConnected subscribes to peer connects
func (s *Session) OnPeerConnected(cb func(peer common.PeerID)) {
	s.onPeerConnected = append(s.onPeerConnected, cb)
}

// OnPeerDisconnected subscribes to peer disconnects
func (s *Session) OnPeerDisconnected(cb func(peer common.PeerID)) {
	s.onPeerDisconnected = append(s.onPeerDisconnected, cb)
}

// Start brings the session up. With no transport the startup fast-forwards
// to the Complete phase immediately.
func (s *Session) Start() error {
	if s.transport == nil {
		nslog.Infof("session: starting offline %s session", s.role)
		s.phases.Start(true)
		return nil
	}

	if err := s.transport.Start(); err != nil {
		return err
	}
	s.phases.Start(false)
	if s.role == common.RoleHost {
		// the host's transport is up as soon as it listens
		s.phases.NetworkUp()
	}
	return nil
}

// Tick advances the session by one processing step: transport events first,
// then timers, deferred work and the per-service incremental state.
func (s *Session) Tick() {
	if s.transport != nil {
		s.transport.Poll(eventAdapter{s})
	}
	timer.Tick()
	s.postQueue.Tick()
	s.phases.Tick()
	s.spawner.Tick()
}

// Run drives the tick loop until Terminate is called. This is the main
// routine of the session process.
func (s *Session) Run() {
	s.runState.Store(rsRunning)
	ticker := time.Tick(s.cfg.TickInterval)
	for {
		<-ticker
		if s.runState.Load() == rsTerminating {
			break
		}
		s.Tick()
	}

	if s.transport != nil {
		s.transport.Close()
	}
	s.runState.Store(rsTerminated)
	nslog.Infof("session: terminated")
}

// Terminate asks the tick loop to stop
func (s *Session) Terminate() {
	s.runState.Store(rsTerminating)
}

// IsTerminated returns if the tick loop has exited
func (s *Session) IsTerminated() bool {
	return s.runState.Load() == rsTerminated
}

func (s *Session) setLocalPeer(peer common.PeerID) {
	s.localPeer = peer
	s.entities.SetLocalPeer(peer)
	s.messages.SetLocalPeer(peer)
	s.variables.SetLocalPeer(peer)
}
