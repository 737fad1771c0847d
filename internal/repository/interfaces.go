// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/bookman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// 認証コアから見えるResource Storeの窓口であり、キャッシュは一切行わない。
type UserRepository interface {
	// FindByUsername は指定usernameのユーザーを取得する。見つからない場合はnilを返す。
	// 照合は大文字小文字を区別する完全一致（正規化は行わない）。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成する。
	// usernameの一意制約違反の場合はmodel.ErrDuplicateUsernameでラップしたエラーを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByToken は指定トークンのセッションを取得する。
	// 期限切れまたは存在しない場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.Session, error)
	// DeleteByToken は指定トークンのセッションを削除する。
	// 存在しないトークンの削除も成功として扱う（冪等）。
	DeleteByToken(ctx context.Context, token string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// BookRepository は書籍データの永続化インターフェース。
type BookRepository interface {
	// FindByID は指定IDの書籍を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Book, error)

	// ListByOwnerUsername は指定ユーザーの書籍一覧を所有者情報付きで返す。
	// created_at降順。
	ListByOwnerUsername(ctx context.Context, username string) ([]model.BookWithOwner, error)

	// Create は書籍を作成する。
	Create(ctx context.Context, book *model.Book) error

	// Update は書籍情報を上書き更新する。該当行が無い場合はfalseを返す。
	Update(ctx context.Context, book *model.Book) (bool, error)

	// Delete は指定IDの書籍を削除する。該当行が無い場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// UpdateCover は書籍の表紙画像データを更新する。
	UpdateCover(ctx context.Context, bookID string, coverData []byte, coverMime string) error

	// ListMissingCovers はISBNがあり表紙画像が未取得の書籍を取得する。
	ListMissingCovers(ctx context.Context, limit int) ([]*model.Book, error)
}
