package sync

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/bukuma/internal/model"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// Listener はPostgreSQLのNOTIFYを受信しHubへ流し込む。
type Listener struct {
	pq  *pq.Listener
	hub *Hub
}

// NewListener はListenerを生成する。
// 接続断が起きてもpq.Listenerが自動で再接続する。
func NewListener(databaseURL string, hub *Hub) *Listener {
	pl := pq.NewListener(databaseURL, listenerMinReconnect, listenerMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				slog.Error("notification listener event",
					slog.Int("event_type", int(ev)),
					slog.String("error", err.Error()),
				)
			}
		})

	return &Listener{pq: pl, hub: hub}
}

// Run は通知の受信ループを開始する。ctxのキャンセルで停止する。
func (l *Listener) Run(ctx context.Context) error {
	if err := l.pq.Listen(NotifyChannel); err != nil {
		return err
	}

	slog.Info("change notification listener started", slog.String("channel", NotifyChannel))

	for {
		select {
		case <-ctx.Done():
			slog.Info("change notification listener stopping")
			return l.pq.Close()

		case n := <-l.pq.Notify:
			// 再接続直後はnilが届くことがある
			if n == nil {
				continue
			}
			l.dispatch(n.Extra)

		case <-time.After(listenerPingInterval):
			// 長時間通知が無い場合は接続の生存確認を行う
			go func() {
				if err := l.pq.Ping(); err != nil {
					slog.Error("listener ping failed", slog.String("error", err.Error()))
				}
			}()
		}
	}
}

// dispatch は通知ペイロードをパースしHubへ配信する。
func (l *Listener) dispatch(payload string) {
	var event model.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		slog.Error("failed to parse change event payload",
			slog.String("payload", payload),
			slog.String("error", err.Error()),
		)
		return
	}

	l.hub.Broadcast(event)
}
