package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/bukuma/internal/model"
)

// NotifyChannel はブックマーク変更通知に使うPostgreSQLのNOTIFYチャネル名。
const NotifyChannel = "bookmark_changes"

// Publisher は変更イベントの発行インターフェース。
type Publisher interface {
	// Publish は変更イベントを発行する。
	Publish(ctx context.Context, event model.ChangeEvent) error
}

// PostgresPublisher はpg_notifyで変更イベントを発行する。
// 同一DBに接続する全プロセスのリスナーにイベントが届くため、
// サーバーを複数台並べてもセッション間の同期が成立する。
type PostgresPublisher struct {
	db *sql.DB
}

// NewPostgresPublisher はPostgresPublisherを生成する。
func NewPostgresPublisher(db *sql.DB) *PostgresPublisher {
	return &PostgresPublisher{db: db}
}

// Publish は変更イベントをJSONシリアライズしてpg_notifyで発行する。
func (p *PostgresPublisher) Publish(ctx context.Context, event model.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("変更イベントのシリアライズに失敗しました: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, string(payload))
	if err != nil {
		return fmt.Errorf("変更イベントの発行に失敗しました: %w", err)
	}

	return nil
}

// compile-time interface check
var _ Publisher = (*PostgresPublisher)(nil)
