package client

import (
	"context"
	"log/slog"
	"strings"
	gosync "sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/bukuma/internal/model"
)

// EventHandler は変更イベントの受信コールバック。
type EventHandler func(event model.ChangeEvent)

// SyncSubscriber は変更フィードのWebSocket購読を管理する。
// 1セッションにつき同時に1本の購読だけを維持する。
// 新しい購読を開く前に既存の購読は必ず閉じられる。
type SyncSubscriber struct {
	client  *Client
	onEvent EventHandler

	mu     gosync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc
}

// NewSyncSubscriber はSyncSubscriberを生成する。
// onEventは変更イベント受信のたびに呼ばれる。
func NewSyncSubscriber(client *Client, onEvent EventHandler) *SyncSubscriber {
	return &SyncSubscriber{
		client:  client,
		onEvent: onEvent,
	}
}

// Open は変更フィードへのWebSocket購読を開始する。
// 既に購読中の場合は先に既存の購読を閉じる。
func (s *SyncSubscriber) Open(ctx context.Context) error {
	// 二重購読を防ぐため、既存の購読を先に閉じる
	s.Close()

	wsURL := toWebSocketURL(s.client.BaseURL()) + "/api/bookmarks/watch"

	dialer := websocket.Dialer{
		Jar:              s.client.Jar(),
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return err
	}

	readCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	go s.readLoop(readCtx, conn)

	return nil
}

// IsOpen は購読中かどうかを返す。
func (s *SyncSubscriber) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Close は購読を閉じる。複数回呼んでも安全。
func (s *SyncSubscriber) Close() {
	s.mu.Lock()
	conn := s.conn
	cancel := s.cancel
	s.conn = nil
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
}

// readLoop は変更イベントを受信しコールバックへ渡す。
// 接続が閉じられるかエラーが起きると終了する。
func (s *SyncSubscriber) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer func() {
		// 自分の接続がまだ現役の場合のみ後始末する
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
			s.cancel = nil
		}
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		var event model.ChangeEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				slog.Warn("change feed read ended", slog.String("error", err.Error()))
			}
			return
		}

		if s.onEvent != nil {
			s.onEvent(event)
		}
	}
}

// toWebSocketURL はhttp/httpsのベースURLをws/wssに変換する。
func toWebSocketURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}
