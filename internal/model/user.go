// Package model はドメインモデルを定義する。
package model

import "time"

// FederatedOnlyHash はローカルパスワードを持たないアカウントを示す番兵値。
// OAuth経由で自動作成されたユーザーのpassword_hash列に格納される。
// bcryptハッシュとして不正な形式のため、パスワード照合は必ず失敗する。
const FederatedOnlyHash = "*federated-only*"

// User はサービス利用ユーザーを表す。
// usernameは全ユーザーで一意（DB制約）。大文字小文字は区別する。
type User struct {
	ID           string
	Name         string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsFederatedOnly はローカルパスワードを持たないユーザーかどうかを返す。
func (u *User) IsFederatedOnly() bool {
	return u.PasswordHash == FederatedOnlyHash
}

// Session はユーザーのログインセッションを表す。
// トークンが主キーであり、同一ユーザーの複数セッションは互いに独立する。
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが期限切れかどうかを判定する。
// 有効期限は作成時に固定され、スライディング更新は行わない。
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
