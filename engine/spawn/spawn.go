package spawn

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"
	timer "github.com/xiaonanln/goTimer"
	"golang.org/x/time/rate"

	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/config"
	"github.com/lunarisgames/netsession/engine/entity"
	"github.com/lunarisgames/netsession/engine/netutil"
	"github.com/lunarisgames/netsession/engine/nslog"
	"github.com/lunarisgames/netsession/engine/nsutils"
	"github.com/lunarisgames/netsession/engine/proto"
	"github.com/lunarisgames/netsession/engine/stats"
)

// Request is one queued unit of spawn work. Before-spawn hooks may adjust it
// in place; a request is never partially applied.
type Request struct {
	TypeName string
	Kind     entity.Kind
	Owner    common.PeerID
	Pos      common.Vector3
	Yaw      common.Yaw
	Data     map[string]interface{}
	Callback func(e *entity.Entity)
}

// Coordinator services connect events and the spawn queue on the host. All
// mutating operations are host-only; peers receive entities by replication.
type Coordinator struct {
	role      common.Role
	cfg       config.SpawnConfig
	entities  *entity.Manager
	transport netutil.Transport
	peerCount func() int

	enabled         bool
	pendingConnects []common.PeerID

	queue   []*Request
	limiter *rate.Limiter

	nextPoint int
	rng       *rand.Rand

	players         map[common.PeerID]common.EntityID
	settleTimers    map[common.PeerID]*timer.Timer
	allSpawnedFired bool

	beforePlayerSpawn []func(req *Request)
	afterPlayerSpawn  []func(e *entity.Entity)
	beforeSpawn       []func(req *Request)
	afterSpawn        []func(e *entity.Entity)
	allPlayersSpawned []func()
}

// NewCoordinator creates a spawn Coordinator. transport may be nil for
// offline sessions; peerCount reports the number of currently connected
// peers.
func NewCoordinator(role common.Role, cfg config.SpawnConfig, entities *entity.Manager, transport netutil.Transport, peerCount func() int) *Coordinator {
	limit := rate.Inf
	if cfg.MinSpawnInterval > 0 {
		limit = rate.Every(cfg.MinSpawnInterval)
	}
	return &Coordinator{
		role:         role,
		cfg:          cfg,
		entities:     entities,
		transport:    transport,
		peerCount:    peerCount,
		limiter:      rate.NewLimiter(limit, 1),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		players:      map[common.PeerID]common.EntityID{},
		settleTimers: map[common.PeerID]*timer.Timer{},
	}
}

// BeforePlayerSpawn registers a hook run before each player spawn
func (c *Coordinator) BeforePlayerSpawn(cb func(req *Request)) {
	c.beforePlayerSpawn = append(c.beforePlayerSpawn, cb)
}

// AfterPlayerSpawn registers a hook run after each player spawn
func (c *Coordinator) AfterPlayerSpawn(cb func(e *entity.Entity)) {
	c.afterPlayerSpawn = append(c.afterPlayerSpawn, cb)
}

// BeforeSpawn registers a hook run before each non-player spawn
func (c *Coordinator) BeforeSpawn(cb func(req *Request)) {
	c.beforeSpawn = append(c.beforeSpawn, cb)
}

// AfterSpawn registers a hook run after each non-player spawn
func (c *Coordinator) AfterSpawn(cb func(e *entity.Entity)) {
	c.afterSpawn = append(c.afterSpawn, cb)
}

// OnAllPlayersSpawned registers a hook run once when the spawned-player count
// reaches the connected-peer count
func (c *Coordinator) OnAllPlayersSpawned(cb func()) {
	c.allPlayersSpawned = append(c.allPlayersSpawned, cb)
}

// Enable begins servicing connect events and the spawn queue. Connects that
// arrived earlier are serviced now.
func (c *Coordinator) Enable() {
	if c.enabled {
		return
	}
	c.enabled = true
	pending := c.pendingConnects
	c.pendingConnects = nil
	for _, peer := range pending {
		c.OnPeerConnected(peer)
	}
}

// OnPeerConnected schedules the automatic player spawn for a newly connected
// peer after the configured settle delay
func (c *Coordinator) OnPeerConnected(peer common.PeerID) {
	if c.role != common.RoleHost {
		return
	}
	if !c.enabled {
		c.pendingConnects = append(c.pendingConnects, peer)
		return
	}
	if !c.cfg.AutoSpawn {
		return
	}

	t := timer.AddCallback(c.cfg.SettleDelay, func() {
		delete(c.settleTimers, peer)
		if _, ok := c.players[peer]; ok {
			return // already spawned
		}
		if _, err := c.SpawnPlayerFor(peer, nil, nil); err != nil {
			nslog.Errorf("spawn: auto spawn for peer %d failed: %v", peer, err)
		}
	})
	c.settleTimers[peer] = t
}

// OnPeerDisconnected drops the bookkeeping entry of the peer. Destruction of
// the owned entity is the ownership layer's business, not the coordinator's.
func (c *Coordinator) OnPeerDisconnected(peer common.PeerID) {
	if t, ok := c.settleTimers[peer]; ok {
		t.Cancel()
		delete(c.settleTimers, peer)
	}
	delete(c.players, peer)
	for i, pending := range c.pendingConnects {
		if pending == peer {
			c.pendingConnects = append(c.pendingConnects[:i], c.pendingConnects[i+1:]...)
			break
		}
	}
}

// SpawnPlayerFor spawns the configured player entity for a peer. pos and yaw
// override the spawn point selection when non-nil.
func (c *Coordinator) SpawnPlayerFor(peer common.PeerID, pos *common.Vector3, yaw *common.Yaw) (*entity.Entity, error) {
	if c.role != common.RoleHost {
		return nil, errors.New("spawn: SpawnPlayerFor is host-only")
	}
	if c.cfg.PlayerEntity == "" {
		return nil, errors.New("spawn: no player entity configured")
	}

	req := &Request{
		TypeName: c.cfg.PlayerEntity,
		Kind:     entity.KindPlayer,
		Owner:    peer,
	}
	if pos != nil {
		req.Pos = *pos
		if yaw != nil {
			req.Yaw = *yaw
		}
	} else {
		point := c.pickSpawnPoint(peer)
		req.Pos = point.Pos
		req.Yaw = point.Yaw
	}

	for _, cb := range c.beforePlayerSpawn {
		cb := cb
		nsutils.RunPanicless(func() { cb(req) })
	}

	e, err := c.apply(req)
	if err != nil {
		return nil, err
	}

	c.players[peer] = e.ID
	stats.PlayersSpawned.Inc()
	for _, cb := range c.afterPlayerSpawn {
		cb := cb
		nsutils.RunPanicless(func() { cb(e) })
	}
	c.checkAllPlayersSpawned()
	return e, nil
}

// QueueSpawn enqueues a non-player spawn serviced by the tick drain
func (c *Coordinator) QueueSpawn(typeName string, pos common.Vector3, yaw common.Yaw, data map[string]interface{}, cb func(e *entity.Entity)) {
	if c.role != common.RoleHost {
		nslog.Errorf("spawn: QueueSpawn is host-only")
		return
	}
	c.queue = append(c.queue, &Request{
		TypeName: typeName,
		Kind:     entity.KindNonPlayer,
		Owner:    common.HostPeerID,
		Pos:      pos,
		Yaw:      yaw,
		Data:     data,
		Callback: cb,
	})
	stats.SpawnQueueDepth.Set(float64(len(c.queue)))
}

// SpawnImmediate spawns a non-player entity bypassing the queue
func (c *Coordinator) SpawnImmediate(typeName string, pos common.Vector3, yaw common.Yaw, data map[string]interface{}) (*entity.Entity, error) {
	if c.role != common.RoleHost {
		return nil, errors.New("spawn: SpawnImmediate is host-only")
	}
	return c.spawnNonPlayer(&Request{
		TypeName: typeName,
		Kind:     entity.KindNonPlayer,
		Owner:    common.HostPeerID,
		Pos:      pos,
		Yaw:      yaw,
		Data:     data,
	})
}

// Despawn destroys an entity and replicates the despawn to peers
func (c *Coordinator) Despawn(e *entity.Entity) error {
	if c.role != common.RoleHost {
		return errors.New("spawn: Despawn is host-only")
	}
	if e.IsDestroyed() {
		return nil
	}
	id := e.ID
	c.entities.Destroy(e)
	if c.transport != nil {
		data, err := proto.Pack(proto.MT_DESPAWN_ENTITY, &proto.DespawnEntity{ID: id})
		if err != nil {
			return err
		}
		if err := c.transport.Broadcast(data); err != nil {
			nslog.Warnf("spawn: despawn broadcast failed: %v", err)
		}
	}
	return nil
}

// PlayerOf returns the player entity ID spawned for the peer
func (c *Coordinator) PlayerOf(peer common.PeerID) common.EntityID {
	return c.players[peer]
}

// QueueLen returns the number of spawn requests not serviced yet
func (c *Coordinator) QueueLen() int {
	return len(c.queue)
}

// Tick drains the spawn queue, at most MaxPerTick entries per tick and never
// faster than the configured inter-spawn interval
func (c *Coordinator) Tick() {
	if !c.enabled || c.role != common.RoleHost {
		return
	}
	for i := 0; i < c.cfg.MaxPerTick && len(c.queue) > 0; i++ {
		if !c.limiter.Allow() {
			break
		}
		req := c.queue[0]
		c.queue = c.queue[1:]
		if _, err := c.spawnNonPlayer(req); err != nil {
			nslog.Errorf("spawn: queued spawn of %s failed: %v", req.TypeName, err)
		}
	}
	stats.SpawnQueueDepth.Set(float64(len(c.queue)))
}

func (c *Coordinator) spawnNonPlayer(req *Request) (*entity.Entity, error) {
	for _, cb := range c.beforeSpawn {
		cb := cb
		nsutils.RunPanicless(func() { cb(req) })
	}

	e, err := c.apply(req)
	if err != nil {
		return nil, err
	}

	for _, cb := range c.afterSpawn {
		cb := cb
		nsutils.RunPanicless(func() { cb(e) })
	}
	if req.Callback != nil {
		nsutils.RunPanicless(func() { req.Callback(e) })
	}
	return e, nil
}

// apply instantiates the request and replicates it, or leaves nothing behind
func (c *Coordinator) apply(req *Request) (*entity.Entity, error) {
	if !entity.IsRegistered(req.TypeName) {
		return nil, errors.Errorf("spawn: entity type %s is not registered", req.TypeName)
	}

	e, err := c.entities.CreateEntity(req.TypeName, req.Kind, req.Owner, req.Pos, req.Yaw, req.Data)
	if err != nil {
		return nil, err
	}

	if c.transport != nil {
		data, err := proto.Pack(proto.MT_SPAWN_ENTITY, &proto.SpawnEntity{
			ID:    e.ID,
			Type:  e.TypeName,
			Kind:  int(e.Kind),
			Owner: e.Owner,
			Pos:   e.Position,
			Yaw:   e.Yaw,
			Data:  req.Data,
		})
		if err != nil {
			c.entities.Destroy(e)
			return nil, err
		}
		if err := c.transport.Broadcast(data); err != nil {
			nslog.Warnf("spawn: spawn broadcast failed: %v", err)
		}
	}

	stats.EntitiesSpawned.Inc()
	return e, nil
}

func (c *Coordinator) pickSpawnPoint(peer common.PeerID) config.SpawnPointConfig {
	if len(c.cfg.Points) == 0 {
		return config.SpawnPointConfig{}
	}
	var idx int
	switch c.cfg.Selection {
	case config.SelectRandom:
		idx = c.rng.Intn(len(c.cfg.Points))
	case config.SelectByPeerID:
		idx = int(peer % common.PeerID(len(c.cfg.Points)))
	default: // round-robin
		idx = c.nextPoint % len(c.cfg.Points)
		c.nextPoint++
	}
	return c.cfg.Points[idx]
}

func (c *Coordinator) checkAllPlayersSpawned() {
	if !c.cfg.NotifyAllSpawned || c.allSpawnedFired {
		return
	}
	if len(c.players) < c.peerCount() {
		return
	}
	c.allSpawnedFired = true
	for _, cb := range c.allPlayersSpawned {
		nsutils.RunPanicless(cb)
	}
}
