package amqp

import (
	"context"
	"errors"
	"testing"

	"flowfinance/internal/log"
)

type fakeAck struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (f *fakeAck) Ack(bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestChangeMessageRoundTrip(t *testing.T) {
	msg := NewChangeMessage("transactions", log.OpDelete, 12)
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := ChangeMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Resource != "transactions" || got.Operation != log.OpDelete || got.ID != 12 {
		t.Fatalf("unexpected message %+v", got)
	}
	if !got.Timestamp.Equal(msg.Timestamp) {
		t.Fatalf("timestamp changed: %v != %v", got.Timestamp, msg.Timestamp)
	}
}

func TestDispatch(t *testing.T) {
	valid, _ := NewChangeMessage("accounts", log.OpCreate, 3).ToJSON()

	tests := []struct {
		name        string
		body        []byte
		handlerErr  error
		wantCalled  bool
		wantAck     bool
		wantRequeue bool
		wantNack    bool
	}{
		{name: "handled", body: valid, wantCalled: true, wantAck: true},
		{name: "handler fails", body: valid, handlerErr: errors.New("sheet offline"), wantCalled: true, wantNack: true, wantRequeue: true},
		{name: "garbage dropped", body: []byte("{"), wantNack: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			called := false
			dispatch(context.Background(), log.Discard(), tt.body, ack, func(_ context.Context, msg *ChangeMessage) error {
				called = true
				if msg.Resource != "accounts" || msg.ID != 3 {
					t.Errorf("unexpected message %+v", msg)
				}
				return tt.handlerErr
			})

			if called != tt.wantCalled {
				t.Errorf("called = %v, want %v", called, tt.wantCalled)
			}
			if ack.acked != tt.wantAck || ack.nacked != tt.wantNack || ack.requeued != tt.wantRequeue {
				t.Errorf("ack state %+v", ack)
			}
		})
	}
}
