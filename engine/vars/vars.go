package vars

import (
	"strconv"

	"golang.org/x/time/rate"

	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/netutil"
	"github.com/lunarisgames/netsession/engine/nslog"
	"github.com/lunarisgames/netsession/engine/nsutils"
	"github.com/lunarisgames/netsession/engine/proto"
	"github.com/lunarisgames/netsession/engine/stats"
)

// Mode is the write permission of a replicated variable slot
type Mode int

const (
	// Everyone allows any role to write the slot
	Everyone Mode = iota
	// OwnerOnly allows only the owning peer of the entity to write
	OwnerOnly
	// HostOnly allows only the host to write
	HostOnly
)

func (m Mode) String() string {
	switch m {
	case Everyone:
		return "Everyone"
	case OwnerOnly:
		return "OwnerOnly"
	case HostOnly:
		return "HostOnly"
	}
	return "InvalidMode"
}

// slot is one named replicated variable. The value is an opaque string at
// the protocol layer; the typed accessors are convenience wrappers over the
// same storage.
type slot struct {
	name     string
	mode     Mode
	syncRate float64
	value    string
	limiter  *rate.Limiter
}

// Store is the per-entity replicated variable store. Slots live in an
// ordered list, the ordered-list replication primitive the store rides on;
// the index map is only a lookup accelerator.
type Store struct {
	role        common.Role
	localPeer   common.PeerID
	entityID    common.EntityID
	owner       common.PeerID
	transport   netutil.Transport
	defaultRate float64

	slots []*slot
	index map[string]*slot

	onChange []func(name string, value string)
}

// NewStore creates a Store for the entity owned by owner. transport may be
// nil for offline sessions.
func NewStore(role common.Role, localPeer common.PeerID, entityID common.EntityID, owner common.PeerID, transport netutil.Transport) *Store {
	return &Store{
		role:      role,
		localPeer: localPeer,
		entityID:  entityID,
		owner:     owner,
		transport: transport,
		index:     map[string]*slot{},
	}
}

// EntityID returns the entity the store belongs to
func (s *Store) EntityID() common.EntityID {
	return s.entityID
}

// SetOwner updates the owning peer after an ownership transfer
func (s *Store) SetOwner(owner common.PeerID) {
	s.owner = owner
}

// DefineSlot configures a named slot with its permission mode and maximum
// update rate in writes per second. A non-positive syncRate falls back to
// the configured default sync rate.
func (s *Store) DefineSlot(name string, mode Mode, syncRate float64) {
	if _, ok := s.index[name]; ok {
		nslog.Errorf("vars: slot %s already defined on %s", name, s.entityID)
		return
	}
	if syncRate <= 0 {
		syncRate = s.defaultRate
	}
	if syncRate <= 0 {
		nslog.Errorf("vars: slot %s sync rate must be positive, got %v", name, syncRate)
		return
	}
	sl := &slot{
		name:     name,
		mode:     mode,
		syncRate: syncRate,
		limiter:  rate.NewLimiter(rate.Limit(syncRate), 1),
	}
	s.slots = append(s.slots, sl)
	s.index[name] = sl
}

// SlotNames returns the configured slot names in definition order
func (s *Store) SlotNames() []string {
	names := make([]string, len(s.slots))
	for i, sl := range s.slots {
		names[i] = sl.name
	}
	return names
}

// OnChange subscribes to accepted slot mutations
func (s *Store) OnChange(cb func(name string, value string)) {
	s.onChange = append(s.onChange, cb)
}

// Set writes a slot. The write is rejected when the local role lacks
// permission, and silently dropped when it arrives inside the slot's rate
// window. Returns whether the write was accepted locally.
func (s *Store) Set(name string, value string) bool {
	sl := s.index[name]
	if sl == nil {
		nslog.Errorf("vars: slot %s is not defined on %s", name, s.entityID)
		return false
	}
	if !s.mayWrite(sl, s.localPeer) {
		nslog.Warnf("vars: peer %d may not write %s slot %s on %s", s.localPeer, sl.mode, name, s.entityID)
		stats.VarWritesDropped.Inc()
		return false
	}
	if !sl.limiter.Allow() {
		// over the rate window: dropped, not queued, not coalesced
		stats.VarWritesDropped.Inc()
		return false
	}

	if s.role == common.RoleHost {
		s.apply(sl, value)
		s.replicate(sl)
		return true
	}

	// forward to the host for re-validation; the local notification fires
	// when the replicated update comes back
	if s.transport == nil {
		return false
	}
	data, err := proto.Pack(proto.MT_VAR_WRITE_REQUEST, &proto.VarWriteRequest{
		Entity: s.entityID,
		Name:   name,
		Value:  value,
	})
	if err != nil {
		nslog.Errorf("vars: pack write request: %v", err)
		return false
	}
	if err := s.transport.SendToServer(data); err != nil {
		nslog.Errorf("vars: send write request: %v", err)
		return false
	}
	return true
}

// Get reads a slot; missing slots read as empty
func (s *Store) Get(name string) string {
	if sl := s.index[name]; sl != nil {
		return sl.value
	}
	return ""
}

// SetFloat writes the slot from a float value
func (s *Store) SetFloat(name string, v float64) bool {
	return s.Set(name, strconv.FormatFloat(v, 'g', -1, 64))
}

// GetFloat reads the slot as a float, 0 on parse failure
func (s *Store) GetFloat(name string) float64 {
	v, err := strconv.ParseFloat(s.Get(name), 64)
	if err != nil {
		return 0
	}
	return v
}

// SetInt writes the slot from an int value
func (s *Store) SetInt(name string, v int64) bool {
	return s.Set(name, strconv.FormatInt(v, 10))
}

// GetInt reads the slot as an int, 0 on parse failure
func (s *Store) GetInt(name string) int64 {
	v, err := strconv.ParseInt(s.Get(name), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// SetBool writes the slot from a bool value
func (s *Store) SetBool(name string, v bool) bool {
	return s.Set(name, strconv.FormatBool(v))
}

// GetBool reads the slot as a bool, false on parse failure
func (s *Store) GetBool(name string) bool {
	v, err := strconv.ParseBool(s.Get(name))
	if err != nil {
		return false
	}
	return v
}

// HandleWriteRequest applies a peer's forwarded write after re-validating
// its permission. Host side; the peer's own check is never trusted.
func (s *Store) HandleWriteRequest(from common.PeerID, req *proto.VarWriteRequest) {
	if s.role != common.RoleHost {
		return
	}
	sl := s.index[req.Name]
	if sl == nil {
		nslog.Warnf("vars: peer %d wrote undefined slot %s on %s", from, req.Name, s.entityID)
		return
	}
	if !s.mayWrite(sl, from) {
		// permission violation: logged and dropped, nothing surfaced to the caller
		nslog.Warnf("vars: peer %d denied write to %s slot %s on %s", from, sl.mode, req.Name, s.entityID)
		stats.VarWritesDropped.Inc()
		return
	}
	s.apply(sl, req.Value)
	s.replicate(sl)
}

// HandleUpdate applies a host-origin replicated update. Peer side; host
// state is ground truth, no local override.
func (s *Store) HandleUpdate(upd *proto.VarUpdate) {
	if s.role != common.RolePeer {
		return
	}
	sl := s.index[upd.Name]
	if sl == nil {
		// slot not defined locally yet; define implicitly as read-only view
		sl = &slot{name: upd.Name, mode: HostOnly, syncRate: 1, limiter: rate.NewLimiter(1, 1)}
		s.slots = append(s.slots, sl)
		s.index[upd.Name] = sl
	}
	s.apply(sl, upd.Value)
}

func (s *Store) mayWrite(sl *slot, writer common.PeerID) bool {
	switch sl.mode {
	case Everyone:
		return true
	case OwnerOnly:
		return writer == s.owner
	case HostOnly:
		return writer == common.HostPeerID
	}
	return false
}

func (s *Store) apply(sl *slot, value string) {
	sl.value = value
	stats.VarWrites.Inc()
	for _, cb := range s.onChange {
		cb := cb
		nsutils.RunPanicless(func() { cb(sl.name, sl.value) })
	}
}

func (s *Store) replicate(sl *slot) {
	if s.transport == nil || s.role != common.RoleHost {
		return
	}
	data, err := proto.Pack(proto.MT_VAR_UPDATE, &proto.VarUpdate{
		Entity: s.entityID,
		Name:   sl.name,
		Value:  sl.value,
	})
	if err != nil {
		nslog.Errorf("vars: pack update: %v", err)
		return
	}
	if err := s.transport.Broadcast(data); err != nil {
		nslog.Warnf("vars: update broadcast failed: %v", err)
	}
}
