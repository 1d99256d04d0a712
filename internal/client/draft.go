package client

import (
	"fmt"
	gosync "sync"
)

// DraftState は入力フォームの状態を表す。
type DraftState string

const (
	// DraftIdle は未入力状態。
	DraftIdle DraftState = "idle"
	// DraftComposing は新規作成の入力中状態。
	DraftComposing DraftState = "composing"
	// DraftEditing は既存ブックマークの編集中状態。
	DraftEditing DraftState = "editing"
	// DraftSubmitting は送信中状態。完了までフォームはロックされる。
	DraftSubmitting DraftState = "submitting"
)

// Draft はブックマーク入力フォームの下書き状態を管理する。
//
// 状態遷移:
//
//	Idle → Composing（入力開始）→ Submitting（送信）→ Idle（成功時リセット）
//	Idle/Composing → Editing（編集開始）→ Submitting → Idle
//
// 送信失敗時は直前の入力状態（Composing または Editing）に戻る。
type Draft struct {
	mu        gosync.Mutex
	state     DraftState
	title     string
	url       string
	editingID string

	// 送信失敗時に戻るべき状態
	priorState DraftState
}

// NewDraft はDraftを生成する。初期状態はIdle。
func NewDraft() *Draft {
	return &Draft{state: DraftIdle}
}

// State は現在のフォーム状態を返す。
func (d *Draft) State() DraftState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Values は現在の入力値を返す。
func (d *Draft) Values() (title, url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.title, d.url
}

// EditingTarget は編集対象のブックマークIDを返す。新規作成中は空文字。
func (d *Draft) EditingTarget() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.editingID
}

// SetTitle はタイトル入力を反映する。Idleの場合はComposingに遷移する。
func (d *Draft) SetTitle(title string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DraftSubmitting {
		return fmt.Errorf("送信中は入力できません")
	}
	d.title = title
	if d.state == DraftIdle {
		d.state = DraftComposing
	}
	return nil
}

// SetURL はURL入力を反映する。Idleの場合はComposingに遷移する。
func (d *Draft) SetURL(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DraftSubmitting {
		return fmt.Errorf("送信中は入力できません")
	}
	d.url = url
	if d.state == DraftIdle {
		d.state = DraftComposing
	}
	return nil
}

// BeginEdit は既存ブックマークの編集を開始し、入力欄に現在値を展開する。
func (d *Draft) BeginEdit(item BookmarkItem) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DraftSubmitting {
		return fmt.Errorf("送信中は編集を開始できません")
	}
	d.state = DraftEditing
	d.title = item.Title
	d.url = item.URL
	d.editingID = item.ID
	return nil
}

// BeginSubmit は送信を開始しフォームをロックする。
// 入力中または編集中でない場合はエラーを返す。
func (d *Draft) BeginSubmit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case DraftComposing, DraftEditing:
		d.priorState = d.state
		d.state = DraftSubmitting
		return nil
	case DraftSubmitting:
		return fmt.Errorf("既に送信中です")
	default:
		return fmt.Errorf("送信する入力がありません")
	}
}

// CompleteSubmit は送信の完了を反映する。
// 成功時はフォームをリセットしIdleに戻る。
// 失敗時は入力値を保持したまま直前の入力状態に戻る。
func (d *Draft) CompleteSubmit(success bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != DraftSubmitting {
		return
	}
	if success {
		d.reset()
		return
	}
	d.state = d.priorState
}

// Cancel は入力を破棄しIdleに戻る。送信中のキャンセルはできない。
func (d *Draft) Cancel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == DraftSubmitting {
		return fmt.Errorf("送信中はキャンセルできません")
	}
	d.reset()
	return nil
}

// reset は呼び出し側でロックを保持していることを前提とする。
func (d *Draft) reset() {
	d.state = DraftIdle
	d.title = ""
	d.url = ""
	d.editingID = ""
	d.priorState = DraftIdle
}
