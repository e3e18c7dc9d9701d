package proto

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/netutil"
)

// MsgType is the type of message types
type MsgType uint16

const (
	// MT_INVALID is the invalid message type
	MT_INVALID MsgType = iota
	// MT_CHANNEL_MESSAGE carries a router message to its targets
	MT_CHANNEL_MESSAGE
	// MT_CHANNEL_BROADCAST_REQUEST asks the host to validate and re-broadcast a router message
	MT_CHANNEL_BROADCAST_REQUEST
	// MT_SPAWN_ENTITY tells peers to instantiate a replicated entity
	MT_SPAWN_ENTITY
	// MT_DESPAWN_ENTITY tells peers to destroy a replicated entity
	MT_DESPAWN_ENTITY
	// MT_TRANSFER_OWNERSHIP tells peers the owner of an entity changed
	MT_TRANSFER_OWNERSHIP
	// MT_SCENE_LOAD tells peers to load or unload a world
	MT_SCENE_LOAD
	// MT_SCENE_READY tells the host a peer finished its local load
	MT_SCENE_READY
	// MT_SCENE_STATE replicates the transition state from host to peers
	MT_SCENE_STATE
	// MT_VAR_UPDATE replicates an accepted variable write from host to peers
	MT_VAR_UPDATE
	// MT_VAR_WRITE_REQUEST forwards a peer's variable write to the host for validation
	MT_VAR_WRITE_REQUEST
	// MT_WELCOME tells a freshly connected peer its assigned peer ID
	MT_WELCOME
)

const typePrefixLength = 2

var packer = netutil.MessagePackMsgPacker{}

// Pack encodes the message type and payload into one wire frame
func Pack(mt MsgType, payload interface{}) ([]byte, error) {
	buf := make([]byte, typePrefixLength, 64)
	binary.BigEndian.PutUint16(buf, uint16(mt))
	buf, err := packer.PackMsg(payload, buf)
	if err != nil {
		return nil, errors.Wrapf(err, "proto: pack %v", mt)
	}
	return buf, nil
}

// Type reads the message type of a wire frame
func Type(frame []byte) MsgType {
	if len(frame) < typePrefixLength {
		return MT_INVALID
	}
	return MsgType(binary.BigEndian.Uint16(frame))
}

// Unpack decodes the payload of a wire frame into msg
func Unpack(frame []byte, msg interface{}) error {
	if len(frame) < typePrefixLength {
		return errors.New("proto: frame too short")
	}
	if err := packer.UnpackMsg(frame[typePrefixLength:], msg); err != nil {
		return errors.Wrapf(err, "proto: unpack %v", Type(frame))
	}
	return nil
}

// SpawnEntity is the payload of MT_SPAWN_ENTITY
type SpawnEntity struct {
	ID    common.EntityID        `msgpack:"ID"`
	Type  string                 `msgpack:"T"`
	Kind  int                    `msgpack:"K"`
	Owner common.PeerID          `msgpack:"O"`
	Pos   common.Vector3         `msgpack:"P"`
	Yaw   common.Yaw             `msgpack:"Y"`
	Data  map[string]interface{} `msgpack:"D,omitempty"`
}

// DespawnEntity is the payload of MT_DESPAWN_ENTITY
type DespawnEntity struct {
	ID common.EntityID `msgpack:"ID"`
}

// TransferOwnership is the payload of MT_TRANSFER_OWNERSHIP
type TransferOwnership struct {
	ID    common.EntityID `msgpack:"ID"`
	Owner common.PeerID   `msgpack:"O"`
}

// SceneLoad is the payload of MT_SCENE_LOAD
type SceneLoad struct {
	Name     string `msgpack:"N"`
	Mode     int    `msgpack:"M"`
	Unload   bool   `msgpack:"U"`
	Sequence uint32 `msgpack:"S"`
}

// SceneReady is the payload of MT_SCENE_READY
type SceneReady struct {
	Name     string `msgpack:"N"`
	Sequence uint32 `msgpack:"S"`
}

// SceneState is the payload of MT_SCENE_STATE
type SceneState struct {
	State    int    `msgpack:"ST"`
	Name     string `msgpack:"N"`
	Ready    int    `msgpack:"R"`
	Expected int    `msgpack:"E"`
}

// VarUpdate is the payload of MT_VAR_UPDATE
type VarUpdate struct {
	Entity common.EntityID `msgpack:"E"`
	Name   string          `msgpack:"N"`
	Value  string          `msgpack:"V"`
}

// Welcome is the payload of MT_WELCOME
type Welcome struct {
	Peer common.PeerID `msgpack:"P"`
}

// VarWriteRequest is the payload of MT_VAR_WRITE_REQUEST
type VarWriteRequest struct {
	Entity common.EntityID `msgpack:"E"`
	Name   string          `msgpack:"N"`
	Value  string          `msgpack:"V"`
}
