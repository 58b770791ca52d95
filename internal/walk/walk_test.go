package walk

import (
	"testing"

	"github.com/sumpurns/uoproxy/internal/protocol"
	"github.com/sumpurns/uoproxy/internal/world"
)

type fakeClient struct{ id int }

func newTestState(t *testing.T) (*State, *world.Mirror) {
	t.Helper()
	w := world.New(nil)
	w.SetStart(&protocol.Start{Serial: 1, X: 100, Y: 100})
	return New(w, nil), w
}

func TestRequestAdoptsFirstClientAsWalker(t *testing.T) {
	s, _ := newTestState(t)
	c1 := &fakeClient{1}

	res := s.Request(c1, &protocol.Walk{Direction: 2, Seq: 0})
	if res.Forward == nil || res.Reject != nil {
		t.Fatalf("first request should be forwarded, got %+v", res)
	}
	if s.Server() != c1 {
		t.Fatal("walker was not adopted")
	}
}

func TestRequestFromSecondClientIsRejected(t *testing.T) {
	s, w := newTestState(t)
	c1, c2 := &fakeClient{1}, &fakeClient{2}

	s.Request(c1, &protocol.Walk{Direction: 0, Seq: 0})
	res := s.Request(c2, &protocol.Walk{Direction: 0, Seq: 5})

	if res.Forward != nil {
		t.Fatal("second walker's request must not be forwarded")
	}
	if res.Reject == nil {
		t.Fatal("second walker's request must be rejected")
	}
	if res.Reject.Seq != 5 {
		t.Fatalf("Reject.Seq = %d, want 5 (echo the requester's own seq)", res.Reject.Seq)
	}
	if res.Reject.X != w.Start.X || res.Reject.Y != w.Start.Y {
		t.Fatal("reject must echo the mirror's current known position")
	}
}

// Invariant 10 / boundary: a fifth request while the queue is full is rejected.
func TestFifthRequestWhileFullIsRejected(t *testing.T) {
	s, _ := newTestState(t)
	c1 := &fakeClient{1}

	for i := 0; i < MaxQueue; i++ {
		res := s.Request(c1, &protocol.Walk{Direction: 0, Seq: uint8(i)})
		if res.Forward == nil {
			t.Fatalf("request %d should have been forwarded", i)
		}
	}

	before := s.seqNext
	res := s.Request(c1, &protocol.Walk{Direction: 0, Seq: 99})
	if res.Reject == nil {
		t.Fatal("fifth request while queue full should be rejected")
	}
	if s.seqNext != before {
		t.Fatal("seqNext must not advance on a rejected request")
	}
	if s.QueueSize() != MaxQueue {
		t.Fatalf("QueueSize() = %d, want %d", s.QueueSize(), MaxQueue)
	}
}

// Invariant 11: seq_next wraps 255 -> 1, never 0.
func TestSeqNextWrapsSkippingZero(t *testing.T) {
	s, _ := newTestState(t)
	s.seqNext = 255

	got := s.nextSeq()
	if got != 255 {
		t.Fatalf("nextSeq() = %d, want 255", got)
	}
	if s.seqNext != 1 {
		t.Fatalf("seqNext after wrap = %d, want 1", s.seqNext)
	}
}

// S3: walk happy path.
func TestAckHappyPath(t *testing.T) {
	s, w := newTestState(t)
	c1 := &fakeClient{1}

	req := s.Request(c1, &protocol.Walk{Direction: 2, Seq: 0}) // east
	if req.Forward == nil {
		t.Fatal("request should forward")
	}

	ack := s.Ack(&protocol.WalkAck{Seq: req.Forward.Seq, Notoriety: 3})
	if ack.Desync {
		t.Fatal("ack should not desync")
	}
	if ack.ToClient.Seq != 0 {
		t.Fatalf("ToClient.Seq = %d, want 0 (original client seq)", ack.ToClient.Seq)
	}
	if s.QueueSize() != 0 {
		t.Fatalf("QueueSize() = %d, want 0 after ack", s.QueueSize())
	}
	if w.Start.X != 101 || w.Start.Y != 100 {
		t.Fatalf("world not advanced to predicted position: %+v", w.Start)
	}
}

func TestAckDesyncPassesThrough(t *testing.T) {
	s, _ := newTestState(t)
	c1 := &fakeClient{1}
	s.Request(c1, &protocol.Walk{Direction: 0, Seq: 0})

	ack := s.Ack(&protocol.WalkAck{Seq: 250, Notoriety: 1})
	if !ack.Desync {
		t.Fatal("mismatched ack seq should desync")
	}
	if s.QueueSize() != 1 {
		t.Fatal("desynced ack must not mutate the queue")
	}
}

// S4: walk reject mid-queue.
func TestCancelDropsRejectedAndLaterEntries(t *testing.T) {
	s, w := newTestState(t)
	c1 := &fakeClient{1}

	var seqs []uint8
	for i := 0; i < 3; i++ {
		res := s.Request(c1, &protocol.Walk{Direction: 2, Seq: uint8(i)})
		seqs = append(seqs, res.Forward.Seq)
	}

	cancel := s.Cancel(&protocol.WalkCancel{Seq: seqs[1], X: 42, Y: 43, Direction: 1})
	if cancel.Desync {
		t.Fatal("cancel for a queued seq must not desync")
	}
	if cancel.ToClient.Seq != 1 {
		t.Fatalf("ToClient.Seq = %d, want 1 (the rejected entry's client seq)", cancel.ToClient.Seq)
	}
	if s.QueueSize() != 1 {
		t.Fatalf("QueueSize() = %d, want 1 (only the entry before the rejected one survives)", s.QueueSize())
	}
	if w.Start.X != 42 || w.Start.Y != 43 || w.Start.Direction != 1 {
		t.Fatalf("world did not snap back to the server's position: %+v", w.Start)
	}
}

func TestServerRemovedClearsWalkerAndQueue(t *testing.T) {
	s, _ := newTestState(t)
	c1 := &fakeClient{1}
	s.Request(c1, &protocol.Walk{Direction: 0, Seq: 0})

	before := s.seqNext
	s.ServerRemoved(c1)

	if s.Server() != nil {
		t.Fatal("walker reference was not cleared")
	}
	if s.QueueSize() != 0 {
		t.Fatal("queue was not cleared")
	}
	if s.seqNext != before {
		t.Fatal("seqNext must not reset on server_removed")
	}
}

func TestServerRemovedIgnoresNonWalker(t *testing.T) {
	s, _ := newTestState(t)
	c1, c2 := &fakeClient{1}, &fakeClient{2}
	s.Request(c1, &protocol.Walk{Direction: 0, Seq: 0})

	s.ServerRemoved(c2)

	if s.Server() != c1 {
		t.Fatal("removing an uninvolved client must not clear the real walker")
	}
}
