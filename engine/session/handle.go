package session

import (
	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/entity"
	"github.com/lunarisgames/netsession/engine/nslog"
	"github.com/lunarisgames/netsession/engine/nsutils"
	"github.com/lunarisgames/netsession/engine/proto"
	"github.com/lunarisgames/netsession/engine/router"
)

// eventAdapter feeds drained transport events into the session
type eventAdapter struct {
	s *Session
}

func (a eventAdapter) OnPeerConnected(peer common.PeerID) {
	a.s.handlePeerConnected(peer)
}

func (a eventAdapter) OnPeerDisconnected(peer common.PeerID) {
	a.s.handlePeerDisconnected(peer)
}

func (a eventAdapter) OnReceive(from common.PeerID, data []byte) {
	a.s.handleFrame(from, data)
}

func (s *Session) handlePeerConnected(peer common.PeerID) {
	if s.role == common.RoleHost {
		s.peers.Add(peer)
		nslog.Infof("session: peer %d connected (%d peers)", peer, len(s.peers))

		s.sendWelcome(peer)
		s.replayEntities(peer)
		s.spawner.OnPeerConnected(peer)
	} else {
		// the connect event of a peer is its link to the host coming up
		nslog.Infof("session: connected to host")
	}

	for _, cb := range s.onPeerConnected {
		cb := cb
		nsutils.RunPanicless(func() { cb(peer) })
	}
}

func (s *Session) handlePeerDisconnected(peer common.PeerID) {
	if s.role == common.RoleHost {
		s.peers.Del(peer)
		nslog.Infof("session: peer %d disconnected (%d peers)", peer, len(s.peers))
		s.spawner.OnPeerDisconnected(peer)
		s.scenes.HandlePeerDisconnected(peer)
	} else {
		nslog.Warnf("session: lost connection to host")
	}

	for _, cb := range s.onPeerDisconnected {
		cb := cb
		nsutils.RunPanicless(func() { cb(peer) })
	}
}

// handleFrame demultiplexes one inbound wire frame
func (s *Session) handleFrame(from common.PeerID, data []byte) {
	msgtype := proto.Type(data)
	switch msgtype {
	case proto.MT_WELCOME:
		var msg proto.Welcome
		if err := proto.Unpack(data, &msg); err != nil {
			nslog.Errorf("session: %v", err)
			return
		}
		s.handleWelcome(&msg)

	case proto.MT_SPAWN_ENTITY:
		var msg proto.SpawnEntity
		if err := proto.Unpack(data, &msg); err != nil {
			nslog.Errorf("session: %v", err)
			return
		}
		s.handleSpawnEntity(&msg)

	case proto.MT_DESPAWN_ENTITY:
		var msg proto.DespawnEntity
		if err := proto.Unpack(data, &msg); err != nil {
			nslog.Errorf("session: %v", err)
			return
		}
		if e := s.entities.Get(msg.ID); e != nil {
			s.entities.Destroy(e)
		}
		s.variables.Drop(msg.ID)

	case proto.MT_TRANSFER_OWNERSHIP:
		var msg proto.TransferOwnership
		if err := proto.Unpack(data, &msg); err != nil {
			nslog.Errorf("session: %v", err)
			return
		}
		if e := s.entities.Get(msg.ID); e != nil {
			s.entities.TransferOwnership(e, msg.Owner)
			s.variables.SetOwner(msg.ID, msg.Owner)
		}

	case proto.MT_SCENE_LOAD:
		var msg proto.SceneLoad
		if err := proto.Unpack(data, &msg); err != nil {
			nslog.Errorf("session: %v", err)
			return
		}
		s.scenes.HandleLoadRequest(&msg)

	case proto.MT_SCENE_READY:
		var msg proto.SceneReady
		if err := proto.Unpack(data, &msg); err != nil {
			nslog.Errorf("session: %v", err)
			return
		}
		s.scenes.HandlePeerReady(from, &msg)

	case proto.MT_SCENE_STATE:
		var msg proto.SceneState
		if err := proto.Unpack(data, &msg); err != nil {
			nslog.Errorf("session: %v", err)
			return
		}
		s.scenes.HandleStateUpdate(&msg)

	case proto.MT_VAR_UPDATE:
		var msg proto.VarUpdate
		if err := proto.Unpack(data, &msg); err != nil {
			nslog.Errorf("session: %v", err)
			return
		}
		s.variables.HandleUpdate(&msg)

	case proto.MT_VAR_WRITE_REQUEST:
		var msg proto.VarWriteRequest
		if err := proto.Unpack(data, &msg); err != nil {
			nslog.Errorf("session: %v", err)
			return
		}
		s.variables.HandleWriteRequest(from, &msg)

	case proto.MT_CHANNEL_MESSAGE:
		var msg router.Message
		if err := proto.Unpack(data, &msg); err != nil {
			nslog.Errorf("session: %v", err)
			return
		}
		if s.role == common.RoleHost {
			// never trust the sender field supplied by the peer
			msg.Sender = from
		}
		s.messages.Dispatch(&msg)

	case proto.MT_CHANNEL_BROADCAST_REQUEST:
		var msg router.Message
		if err := proto.Unpack(data, &msg); err != nil {
			nslog.Errorf("session: %v", err)
			return
		}
		s.messages.HandleBroadcastRequest(from, &msg)

	default:
		nslog.TraceError("session: unknown msgtype from peer %d: %v", from, msgtype)
	}
}

func (s *Session) handleWelcome(msg *proto.Welcome) {
	if s.role != common.RolePeer {
		return
	}
	s.setLocalPeer(msg.Peer)
	nslog.Infof("session: welcomed as peer %d", msg.Peer)
	s.phases.NetworkUp()
}

func (s *Session) handleSpawnEntity(msg *proto.SpawnEntity) {
	if s.role != common.RolePeer {
		return
	}
	e, err := s.entities.CreateEntityWithID(msg.ID, msg.Type, entity.Kind(msg.Kind), msg.Owner, msg.Pos, msg.Yaw, msg.Data)
	if err != nil {
		nslog.Errorf("session: replicated spawn failed: %v", err)
		return
	}
	if e.Kind == entity.KindPlayer && e.Owner == s.localPeer {
		// the local representation is now fully spawned
		s.phases.LocalPlayerReady()
	}
}

func (s *Session) sendWelcome(peer common.PeerID) {
	data, err := proto.Pack(proto.MT_WELCOME, &proto.Welcome{Peer: peer})
	if err != nil {
		nslog.Errorf("session: pack welcome: %v", err)
		return
	}
	if err := s.transport.SendToPeer(peer, data); err != nil {
		nslog.Errorf("session: send welcome to peer %d: %v", peer, err)
	}
}

// replayEntities brings a late joiner up to date with every live entity
func (s *Session) replayEntities(peer common.PeerID) {
	s.entities.EachEntity(func(e *entity.Entity) bool {
		data, err := proto.Pack(proto.MT_SPAWN_ENTITY, &proto.SpawnEntity{
			ID:    e.ID,
			Type:  e.TypeName,
			Kind:  int(e.Kind),
			Owner: e.Owner,
			Pos:   e.Position,
			Yaw:   e.Yaw,
			Data:  e.Attrs.ToMap(),
		})
		if err != nil {
			nslog.Errorf("session: pack replay of %s: %v", e, err)
			return true
		}
		if err := s.transport.SendToPeer(peer, data); err != nil {
			nslog.Warnf("session: replay %s to peer %d: %v", e, peer, err)
		}
		return true
	})
}

// TransferOwnership reassigns an entity's owner and replicates the change.
// Host-only.
func (s *Session) TransferOwnership(e *entity.Entity, newOwner common.PeerID) bool {
	if s.role != common.RoleHost {
		nslog.Errorf("session: TransferOwnership is host-only")
		return false
	}
	s.entities.TransferOwnership(e, newOwner)
	s.variables.SetOwner(e.ID, newOwner)
	if s.transport == nil {
		return true
	}
	data, err := proto.Pack(proto.MT_TRANSFER_OWNERSHIP, &proto.TransferOwnership{ID: e.ID, Owner: newOwner})
	if err != nil {
		nslog.Errorf("session: pack ownership transfer: %v", err)
		return false
	}
	if err := s.transport.Broadcast(data); err != nil {
		nslog.Warnf("session: ownership broadcast failed: %v", err)
	}
	return true
}
