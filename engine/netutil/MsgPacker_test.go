package netutil

import "testing"

type testMsg struct {
	ID        string
	F1        float64
	ListField []interface{}
	MapField  map[string]interface{}
}

func TestMsgPackerRoundTrip(t *testing.T) {
	for _, packer := range []MsgPacker{MessagePackMsgPacker{}, JSONMsgPacker{}} {
		msg := testMsg{
			ID: "abc",
			F1: 0.123124234,
		}
		buf, err := packer.PackMsg(msg, make([]byte, 0, 100))
		if err != nil {
			t.Error(err)
		}
		var out testMsg
		if err := packer.UnpackMsg(buf, &out); err != nil {
			t.Error(err)
		}
		if out.ID != msg.ID || out.F1 != msg.F1 {
			t.Errorf("%T: wrong roundtrip: %+v", packer, out)
		}
	}
}

func TestMessagePackMsgPacker_UnpackMsg(t *testing.T) {
	msg := map[string]interface{}{
		"a": 1,
		"b": 2,
		"c": map[string]interface{}{
			"d": 1,
		},
	}
	buf, err := MessagePackMsgPacker{}.PackMsg(msg, make([]byte, 0))
	if err != nil {
		t.Error(err)
	}
	var outmsg map[string]interface{}
	MessagePackMsgPacker{}.UnpackMsg(buf, &outmsg)
	t.Logf("outmsg %T %v", outmsg, outmsg)
	if _, ok := outmsg["c"].(map[interface{}]interface{}); ok {
		t.Errorf("should not unpack with type map[interface{}]interface{}")
	}
}
