package sync

import (
	"testing"
	"time"

	"github.com/hitoshi/bukuma/internal/model"
)

func makeEvent(userID string, changeType model.ChangeType) model.ChangeEvent {
	return model.ChangeEvent{
		Type:       changeType,
		BookmarkID: "bookmark-1",
		UserID:     userID,
		OccurredAt: time.Now(),
	}
}

func TestHub_Broadcast_DeliversToOwnUserOnly(t *testing.T) {
	hub := NewHub()

	subA := hub.Subscribe("user-a")
	defer subA.Close()
	subB := hub.Subscribe("user-b")
	defer subB.Close()

	hub.Broadcast(makeEvent("user-a", model.ChangeInsert))

	select {
	case event := <-subA.Events():
		if event.UserID != "user-a" {
			t.Errorf("event userID = %q, want %q", event.UserID, "user-a")
		}
		if event.Type != model.ChangeInsert {
			t.Errorf("event type = %q, want %q", event.Type, model.ChangeInsert)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber A should receive its own user's event")
	}

	// 他ユーザーの購読者には届かないこと
	select {
	case event := <-subB.Events():
		t.Fatalf("subscriber B should not receive user-a's event, got %+v", event)
	default:
	}
}

func TestHub_Broadcast_DeliversToAllSessionsOfSameUser(t *testing.T) {
	hub := NewHub()

	sub1 := hub.Subscribe("user-multi")
	defer sub1.Close()
	sub2 := hub.Subscribe("user-multi")
	defer sub2.Close()

	hub.Broadcast(makeEvent("user-multi", model.ChangeUpdate))

	for i, sub := range []*Subscription{sub1, sub2} {
		select {
		case event := <-sub.Events():
			if event.Type != model.ChangeUpdate {
				t.Errorf("session %d: event type = %q, want %q", i+1, event.Type, model.ChangeUpdate)
			}
		case <-time.After(time.Second):
			t.Fatalf("session %d should receive the event", i+1)
		}
	}
}

func TestHub_Broadcast_NoSubscribers_DoesNotBlock(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		hub.Broadcast(makeEvent("user-nobody", model.ChangeDelete))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast without subscribers should not block")
	}
}

func TestSubscription_Close_RemovesFromHub(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe("user-closing")
	if got := hub.SubscriberCount("user-closing"); got != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", got)
	}

	sub.Close()

	if got := hub.SubscriberCount("user-closing"); got != 0 {
		t.Errorf("SubscriberCount after Close = %d, want 0", got)
	}

	// クローズ後はチャネルも閉じられること
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected closed events channel")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel should be closed")
	}
}

func TestSubscription_Close_Idempotent(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe("user-double-close")
	sub.Close()
	// 2回目のCloseでpanicしないこと
	sub.Close()
}

func TestHub_Broadcast_FullBuffer_DropsEvent(t *testing.T) {
	hub := NewHub()

	sub := hub.Subscribe("user-slow")
	defer sub.Close()

	// バッファ容量を超えて発行してもブロックしないこと
	for i := 0; i < subscriptionBufferSize+5; i++ {
		hub.Broadcast(makeEvent("user-slow", model.ChangeInsert))
	}

	received := 0
	for {
		select {
		case <-sub.Events():
			received++
		default:
			if received != subscriptionBufferSize {
				t.Errorf("received = %d, want %d (overflow should be dropped)", received, subscriptionBufferSize)
			}
			return
		}
	}
}
