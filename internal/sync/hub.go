// Package sync はブックマーク変更イベントの配信基盤を提供する。
// PostgreSQLのNOTIFYで発行されたイベントをリスナーが受信し、
// Hubが接続中のセッション（WebSocket購読者）へユーザー単位でファンアウトする。
package sync

import (
	"log/slog"
	gosync "sync"

	"github.com/hitoshi/bukuma/internal/model"
)

// subscriptionBufferSize は購読者ごとのイベントバッファ数。
// 受信が追いつかない購読者にはイベントを破棄して他の購読者への配信を守る。
const subscriptionBufferSize = 16

// Subscription は1つのWebSocket接続に対応するイベント購読。
type Subscription struct {
	userID string
	events chan model.ChangeEvent
	hub    *Hub

	closeOnce gosync.Once
}

// Events は変更イベントの受信チャネルを返す。
// Subscriptionが閉じられるとチャネルもクローズされる。
func (s *Subscription) Events() <-chan model.ChangeEvent {
	return s.events
}

// UserID は購読対象のユーザーIDを返す。
func (s *Subscription) UserID() string {
	return s.userID
}

// Close は購読を解除する。複数回呼んでも安全。
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.unsubscribe(s)
		close(s.events)
	})
}

// Hub はユーザー単位の購読者レジストリ。
// Broadcastされたイベントは、そのイベントのuser_idに一致する購読者だけに届く。
type Hub struct {
	mu   gosync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub はHubを生成する。
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe は指定ユーザーの変更イベント購読を開始する。
func (h *Hub) Subscribe(userID string) *Subscription {
	sub := &Subscription{
		userID: userID,
		events: make(chan model.ChangeEvent, subscriptionBufferSize),
		hub:    h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}

	return sub
}

// unsubscribe は購読者をレジストリから取り除く。
func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.userID)
		}
	}
}

// Broadcast はイベントを該当ユーザーの全購読者へ配信する。
// 他ユーザーの購読者には一切届かない。
// バッファが溢れた購読者へのイベントは破棄される。
func (h *Hub) Broadcast(event model.ChangeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.UserID] {
		select {
		case sub.events <- event:
		default:
			slog.Warn("subscriber event buffer full, dropping event",
				slog.String("user_id", event.UserID),
				slog.String("change_type", string(event.Type)),
			)
		}
	}
}

// SubscriberCount は指定ユーザーの現在の購読者数を返す。
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
