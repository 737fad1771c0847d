// Package auth は本人性の証明（ローカルパスワード / OAuth連携）と
// 認証フローのオーケストレーションを提供する。
package auth

import "github.com/hitoshi/bookman/internal/model"

// Status は本人性証明の結果種別を表す。
// 1回の証明試行は必ずいずれか1つのStatusを生成する。
type Status int

const (
	// StatusAuthenticated は証明の成功を示す。
	StatusAuthenticated Status = iota + 1
	// StatusNotFound は指定されたusernameが存在しないことを示す（ローカルのみ）。
	StatusNotFound
	// StatusInvalidCredentials はusernameは存在するがパスワードが一致しないことを示す。
	StatusInvalidCredentials
	// StatusProviderFailure はストアや外部IdP自体の障害を示す。
	// この結果のみが一時的なインフラ問題であり、他は確定的な業務結果である。
	StatusProviderFailure
)

// String はStatusのログ用表現を返す。
func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusNotFound:
		return "not_found"
	case StatusInvalidCredentials:
		return "invalid_credentials"
	case StatusProviderFailure:
		return "provider_failure"
	default:
		return "unknown"
	}
}

// Outcome は本人性証明の結果。
// UserはStatusAuthenticatedの場合のみ、ErrはStatusProviderFailureの場合のみ設定される。
type Outcome struct {
	Status Status
	User   *model.User
	Err    error
}

// Authenticated は証明成功のOutcomeを生成する。
func Authenticated(user *model.User) Outcome {
	return Outcome{Status: StatusAuthenticated, User: user}
}

// NotFound はユーザー未検出のOutcomeを生成する。
func NotFound() Outcome {
	return Outcome{Status: StatusNotFound}
}

// InvalidCredentials はパスワード不一致のOutcomeを生成する。
func InvalidCredentials() Outcome {
	return Outcome{Status: StatusInvalidCredentials}
}

// ProviderFailure はインフラ障害のOutcomeを生成する。
func ProviderFailure(err error) Outcome {
	return Outcome{Status: StatusProviderFailure, Err: err}
}
