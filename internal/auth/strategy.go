package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/password"
	"github.com/hitoshi/bookman/internal/repository"
)

// Material は本人性証明の入力（証明材料）を表す。
// LocalCredentialsとFederatedProfileのいずれか。
type Material interface {
	isMaterial()
}

// LocalCredentials はローカルパスワード認証の証明材料。
type LocalCredentials struct {
	Username string
	Password string
}

func (LocalCredentials) isMaterial() {}

// FederatedProfile は外部IdPから受け取った証明材料。
// OAuthの認可コードフロー完了後のプロフィールであり、内容は検証済みとして信頼する。
type FederatedProfile struct {
	Email       string
	DisplayName string
}

func (FederatedProfile) isMaterial() {}

// Strategy は本人性の証明手続きを表す。
// 実装は証明材料を検証し、必ずちょうど1つのOutcomeを返す。
type Strategy interface {
	ProveIdentity(ctx context.Context, material Material) Outcome
}

// LocalStrategy はusername+passwordによるローカル認証。
type LocalStrategy struct {
	users repository.UserRepository
}

// NewLocalStrategy はLocalStrategyを生成する。
func NewLocalStrategy(users repository.UserRepository) *LocalStrategy {
	return &LocalStrategy{users: users}
}

// ProveIdentity はusernameでユーザーを検索し、パスワードを照合する。
// 検索は大文字小文字を区別する完全一致で行う。
func (s *LocalStrategy) ProveIdentity(ctx context.Context, material Material) Outcome {
	creds, ok := material.(LocalCredentials)
	if !ok {
		return ProviderFailure(fmt.Errorf("unexpected proof material %T for local strategy", material))
	}

	user, err := s.users.FindByUsername(ctx, creds.Username)
	if err != nil {
		return ProviderFailure(fmt.Errorf("failed to find user: %w", err))
	}
	if user == nil {
		return NotFound()
	}

	if !password.Verify(creds.Password, user.PasswordHash) {
		return InvalidCredentials()
	}

	return Authenticated(user)
}

// FederatedStrategy はOAuth連携プロフィールによる認証。
// 本人性の検証自体は外部IdPに委譲済みのため、ローカルレコードの
// 検索または初回プロビジョニングのみを行う。
// NotFound/InvalidCredentialsを返すことはない。
type FederatedStrategy struct {
	users repository.UserRepository
}

// NewFederatedStrategy はFederatedStrategyを生成する。
func NewFederatedStrategy(users repository.UserRepository) *FederatedStrategy {
	return &FederatedStrategy{users: users}
}

// ProveIdentity はメールアドレスのローカル部からusernameを導出し、
// 既存ユーザーを検索する。存在しない場合はパスワードなしの
// アカウントを自動作成する。
func (s *FederatedStrategy) ProveIdentity(ctx context.Context, material Material) Outcome {
	profile, ok := material.(FederatedProfile)
	if !ok {
		return ProviderFailure(fmt.Errorf("unexpected proof material %T for federated strategy", material))
	}

	derived := DeriveUsername(profile.Email)
	if derived == "" {
		return ProviderFailure(fmt.Errorf("cannot derive username from email %q", profile.Email))
	}

	user, err := s.users.FindByUsername(ctx, derived)
	if err != nil {
		return ProviderFailure(fmt.Errorf("failed to find user: %w", err))
	}
	if user != nil {
		return Authenticated(user)
	}

	// 初回ログイン: 連携専用アカウントを自動作成する
	now := time.Now()
	newUser := &model.User{
		ID:           uuid.New().String(),
		Name:         profile.DisplayName,
		Username:     derived,
		PasswordHash: model.FederatedOnlyHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, newUser); err != nil {
		// 同一メールの初回ログインが並行した場合の一意制約違反。
		// 相手方が作成したレコードを再検索し、既存ユーザーとして扱う。
		if errors.Is(err, model.ErrDuplicateUsername) {
			existing, lookupErr := s.users.FindByUsername(ctx, derived)
			if lookupErr != nil {
				return ProviderFailure(fmt.Errorf("failed to re-find user after duplicate: %w", lookupErr))
			}
			if existing != nil {
				return Authenticated(existing)
			}
		}
		return ProviderFailure(fmt.Errorf("failed to provision federated user: %w", err))
	}

	slog.Info("federated user provisioned",
		slog.String("user_id", newUser.ID),
		slog.String("username", derived),
	)

	return Authenticated(newUser)
}

// DeriveUsername はメールアドレスの最初の@より前の部分をusernameとして返す。
// 正規化（小文字化等）は行わない。@を含まない場合は空文字を返す。
func DeriveUsername(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return ""
	}
	return email[:at]
}

// compile-time interface checks
var _ Strategy = (*LocalStrategy)(nil)
var _ Strategy = (*FederatedStrategy)(nil)
