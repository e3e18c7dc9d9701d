package post

import "testing"

func TestPost(t *testing.T) {
	q := NewQueue()
	var a int
	q.Post(func() {
		a = 1
	})
	q.Tick()
	if a != 1 {
		t.Errorf("a should be 1")
	}
}

func TestPostDuringTick(t *testing.T) {
	q := NewQueue()
	var order []int
	q.Post(func() {
		order = append(order, 1)
		q.Post(func() {
			order = append(order, 2)
		})
	})
	q.Tick()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("wrong order: %v", order)
	}
	if q.Pending() != 0 {
		t.Errorf("queue should be drained")
	}
}

func TestPostPanicIsolated(t *testing.T) {
	q := NewQueue()
	var a int
	q.Post(func() {
		panic("boom")
	})
	q.Post(func() {
		a = 1
	})
	q.Tick()
	if a != 1 {
		t.Errorf("callback after panic should still run")
	}
}
