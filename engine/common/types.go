package common

import (
	"math"

	"github.com/lunarisgames/netsession/engine/nslog"
	"github.com/lunarisgames/netsession/engine/uuid"
)

// ENTITYID_LENGTH is the length of Entity IDs
const ENTITYID_LENGTH = uuid.UUID_LENGTH

// EntityID is the unique identifier of a network entity
type EntityID string

// IsNil returns if EntityID is nil
func (id EntityID) IsNil() bool {
	return id == ""
}

// GenEntityID generates a new EntityID
func GenEntityID() EntityID {
	return EntityID(uuid.GenUUID())
}

// MustEntityID assures a string to be EntityID
func MustEntityID(id string) EntityID {
	if len(id) != ENTITYID_LENGTH {
		nslog.Panicf("%s of len %d is not a valid entity ID (len=%d)", id, len(id), ENTITYID_LENGTH)
	}
	return EntityID(id)
}

// PeerID identifies a connected participant in the session. The host is
// always peer 0; the transport assigns identifiers to remote peers.
type PeerID uint64

// HostPeerID is the PeerID reserved for the host process
const HostPeerID PeerID = 0

// IsHost returns if the PeerID is the host's
func (id PeerID) IsHost() bool {
	return id == HostPeerID
}

// Role is the session role of the local process, decided once at session
// start and immutable afterwards.
type Role int

const (
	// RoleHost is the single authoritative process of a session
	RoleHost Role = iota
	// RolePeer is a connected non-authoritative participant
	RolePeer
)

func (r Role) String() string {
	if r == RoleHost {
		return "host"
	}
	return "peer"
}

// Yaw is the type of entity orientation
type Yaw float32

// Vector3 is a 3D position
type Vector3 struct {
	X float32 `msgpack:"X"`
	Y float32 `msgpack:"Y"`
	Z float32 `msgpack:"Z"`
}

// DistanceTo returns the distance between two positions
func (p Vector3) DistanceTo(o Vector3) float32 {
	dx := float64(p.X - o.X)
	dy := float64(p.Y - o.Y)
	dz := float64(p.Z - o.Z)
	return float32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}
