package proto

import (
	"testing"

	"github.com/lunarisgames/netsession/engine/common"
)

func TestPackUnpack(t *testing.T) {
	in := SpawnEntity{
		ID:    common.GenEntityID(),
		Type:  "Avatar",
		Kind:  1,
		Owner: 3,
		Pos:   common.Vector3{X: 1, Y: 2, Z: 3},
		Yaw:   90,
	}
	frame, err := Pack(MT_SPAWN_ENTITY, &in)
	if err != nil {
		t.Fatal(err)
	}
	if Type(frame) != MT_SPAWN_ENTITY {
		t.Errorf("wrong type: %v", Type(frame))
	}

	var out SpawnEntity
	if err := Unpack(frame, &out); err != nil {
		t.Fatal(err)
	}
	if out.ID != in.ID || out.Type != in.Type || out.Owner != in.Owner {
		t.Errorf("payload mismatch: %+v", out)
	}
	if out.Pos != in.Pos || out.Yaw != in.Yaw {
		t.Errorf("transform mismatch: %+v", out)
	}
}

func TestShortFrame(t *testing.T) {
	if Type([]byte{1}) != MT_INVALID {
		t.Fail()
	}
	var msg SceneReady
	if err := Unpack([]byte{1}, &msg); err == nil {
		t.Errorf("short frame should not unpack")
	}
}
