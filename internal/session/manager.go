// Package session はセッションの作成・解決・破棄を提供する。
// セッションは証明済みユーザーとリクエストを結びつける唯一の手段であり、
// プロセス全体で共有される可変状態はセッションストア（DB）のみとする。
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
)

// DefaultTTL はセッションの有効期間のデフォルト値（24時間）。
const DefaultTTL = 24 * time.Hour

// Manager はセッションのライフサイクルを管理する。
// セッションの変更はManagerだけが行う。
type Manager struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	signer   *Signer
	ttl      time.Duration
}

// NewManager はManagerを生成する。ttlが0以下の場合はDefaultTTLを使用する。
func NewManager(sessions repository.SessionRepository, users repository.UserRepository, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		sessions: sessions,
		users:    users,
		signer:   NewSigner(secret),
		ttl:      ttl,
	}
}

// Create は証明済みユーザーに対して新しいセッションを発行する。
// 戻り値はセッションと署名付きCookie値。
// 同一ユーザーの複数セッション（複数ブラウザ等）は互いに独立して共存できる。
func (m *Manager) Create(ctx context.Context, user *model.User) (*model.Session, string, error) {
	token, err := generateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to save session: %w", err)
	}

	return session, m.signer.Sign(token), nil
}

// Resolve は署名付きCookie値からユーザーを解決する。
// 署名不正・未登録・期限切れ・ユーザー消失のいずれも(nil, nil)を返す（fail closed）。
// エラーを返すのはストア障害の場合のみ。
// ユーザーはセッションにキャッシュせず、毎回ストアから再取得する。
func (m *Manager) Resolve(ctx context.Context, cookieValue string) (*model.User, error) {
	token, ok := m.signer.Verify(cookieValue)
	if !ok {
		return nil, nil
	}

	session, err := m.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := m.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	return user, nil
}

// Destroy は署名付きCookie値に対応するセッションを破棄する。
// 署名不正・存在しないトークンの破棄も成功として扱う（冪等）。
func (m *Manager) Destroy(ctx context.Context, cookieValue string) error {
	token, ok := m.signer.Verify(cookieValue)
	if !ok {
		return nil
	}
	if err := m.sessions.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
