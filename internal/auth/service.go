package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/password"
	"github.com/hitoshi/bookman/internal/repository"
)

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、連携プロフィールを取得する。
	ExchangeCode(ctx context.Context, code string) (*FederatedProfile, error)
}

// SessionManager は認証サービスが必要とするセッション操作のインターフェース。
// session.Managerの部分集合として定義する。
type SessionManager interface {
	Create(ctx context.Context, user *model.User) (*model.Session, string, error)
	Resolve(ctx context.Context, cookieValue string) (*model.User, error)
	Destroy(ctx context.Context, cookieValue string) error
}

// Service は認証に関するビジネスロジックを提供する。
// 証明の完了後にのみセッションを発行する（途中状態のセッションは観測されない）。
type Service struct {
	oauth     OAuthProvider
	users     repository.UserRepository
	local     Strategy
	federated Strategy
	sessions  SessionManager
}

// NewService はServiceを生成する。
func NewService(oauth OAuthProvider, users repository.UserRepository, sessions SessionManager) *Service {
	return &Service{
		oauth:     oauth,
		users:     users,
		local:     NewLocalStrategy(users),
		federated: NewFederatedStrategy(users),
		sessions:  sessions,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// Register はローカルパスワードで新規ユーザーを登録し、セッションを発行する。
// username重複の場合はmodel.ErrDuplicateUsernameでラップしたエラーを返す。
// 戻り値は作成されたユーザーと署名付きセッションCookie値。
func (s *Service) Register(ctx context.Context, name, username, plainPassword string) (*model.User, string, error) {
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	_, cookieValue, err := s.sessions.Create(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)

	return user, cookieValue, nil
}

// LoginLocal はローカルパスワードによるログインを処理する。
// 証明が成功した場合のみセッションを発行し、署名付きCookie値を返す。
// NotFound/InvalidCredentialsは確定的な業務結果としてOutcomeで返し、
// エラーを返すのはセッション発行の失敗時のみ。
func (s *Service) LoginLocal(ctx context.Context, username, plainPassword string) (Outcome, string, error) {
	outcome := s.local.ProveIdentity(ctx, LocalCredentials{Username: username, Password: plainPassword})
	if outcome.Status != StatusAuthenticated {
		return outcome, "", nil
	}

	_, cookieValue, err := s.sessions.Create(ctx, outcome.User)
	if err != nil {
		return outcome, "", fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", outcome.User.ID),
		slog.String("strategy", "local"),
	)

	return outcome, cookieValue, nil
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 初回ログインのユーザーは連携専用アカウントとして自動作成される。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.User, string, error) {
	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	outcome := s.federated.ProveIdentity(ctx, *profile)
	if outcome.Status != StatusAuthenticated {
		// 連携戦略はAuthenticatedかProviderFailureのみを返す
		return nil, "", fmt.Errorf("federated proof failed: %w", outcome.Err)
	}

	_, cookieValue, err := s.sessions.Create(ctx, outcome.User)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", outcome.User.ID),
		slog.String("strategy", "federated"),
	)

	return outcome.User, cookieValue, nil
}

// Logout はセッションを破棄する。存在しないセッションの破棄も成功として扱う。
func (s *Service) Logout(ctx context.Context, cookieValue string) error {
	if err := s.sessions.Destroy(ctx, cookieValue); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// CurrentUser はセッションCookie値から現在のユーザーを解決する。
// 未認証の場合は(nil, nil)を返す。
func (s *Service) CurrentUser(ctx context.Context, cookieValue string) (*model.User, error) {
	return s.sessions.Resolve(ctx, cookieValue)
}

// IsDuplicateUsername はエラーがusername重複によるものかを判定する。
func IsDuplicateUsername(err error) bool {
	return errors.Is(err, model.ErrDuplicateUsername)
}
