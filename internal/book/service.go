// Package book は書籍管理のドメインロジックを提供する。
package book

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/bookman/internal/model"
	"github.com/hitoshi/bookman/internal/repository"
	"github.com/hitoshi/bookman/internal/security"
)

// maxTitleLength はタイトルの最大長。
const maxTitleLength = 500

// maxISBNLength はISBNの最大長（ハイフン込みのISBN-13を許容）。
const maxISBNLength = 17

// Input は書籍の作成・更新で受け取る入力。
type Input struct {
	Title   string
	Author  string
	ISBN    string
	Rating  int
	Summary string
	Notes   string
	Review  string
}

// Service は書籍管理のサービス層。
// 入力検証、ユーザー入力のサニタイズ、CRUDのビジネスロジックを提供する。
// 所有者の認可はハンドラ側のミドルウェアで実施済みであることを前提とする。
type Service struct {
	books     repository.BookRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(books repository.BookRepository, sanitizer security.ContentSanitizerService) *Service {
	return &Service{
		books:     books,
		sanitizer: sanitizer,
	}
}

// ListByOwner は指定ユーザーの書籍一覧を所有者情報付きで返す。
func (s *Service) ListByOwner(ctx context.Context, username string) ([]model.BookWithOwner, error) {
	books, err := s.books.ListByOwnerUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("書籍一覧の取得に失敗しました: %w", err)
	}
	return books, nil
}

// Get は指定IDの書籍を取得する。
// 見つからない場合はBookNotFoundエラーを返す。
func (s *Service) Get(ctx context.Context, bookID string) (*model.Book, error) {
	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("書籍の取得に失敗しました: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(bookID)
	}
	return book, nil
}

// Create は書籍を作成する。
// 入力検証とサニタイズを行い、所有者は認証済みユーザーに固定される。
func (s *Service) Create(ctx context.Context, owner *model.User, input Input) (*model.Book, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	book := &model.Book{
		ID:      uuid.New().String(),
		UserID:  owner.ID,
		Title:   strings.TrimSpace(input.Title),
		Author:  strings.TrimSpace(input.Author),
		ISBN:    normalizeISBN(input.ISBN),
		Rating:  input.Rating,
		Summary: s.sanitizer.Sanitize(input.Summary),
		Notes:   s.sanitizer.Sanitize(input.Notes),
		Review:  s.sanitizer.Sanitize(input.Review),
	}

	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("書籍の作成に失敗しました: %w", err)
	}

	return book, nil
}

// Update は所有者の書籍を更新する。
// 書籍が存在しない、または所有者が異なる場合はBookNotFoundエラーを返す。
func (s *Service) Update(ctx context.Context, ownerID, bookID string, input Input) (*model.Book, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	existing, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("書籍の取得に失敗しました: %w", err)
	}
	// 他人の書籍は存在を明かさない
	if existing == nil || existing.UserID != ownerID {
		return nil, model.NewBookNotFoundError(bookID)
	}

	existing.Title = strings.TrimSpace(input.Title)
	existing.Author = strings.TrimSpace(input.Author)
	existing.Rating = input.Rating
	existing.Summary = s.sanitizer.Sanitize(input.Summary)
	existing.Notes = s.sanitizer.Sanitize(input.Notes)
	existing.Review = s.sanitizer.Sanitize(input.Review)

	// ISBNが変わった場合は表紙を取り直すためクリアする
	newISBN := normalizeISBN(input.ISBN)
	if newISBN != existing.ISBN {
		existing.ISBN = newISBN
		existing.CoverData = nil
		existing.CoverMime = ""
	}

	updated, err := s.books.Update(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("書籍の更新に失敗しました: %w", err)
	}
	if !updated {
		return nil, model.NewBookNotFoundError(bookID)
	}

	return existing, nil
}

// Delete は所有者の書籍を削除する。
// 書籍が存在しない、または所有者が異なる場合はBookNotFoundエラーを返す。
func (s *Service) Delete(ctx context.Context, ownerID, bookID string) error {
	existing, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return fmt.Errorf("書籍の取得に失敗しました: %w", err)
	}
	if existing == nil || existing.UserID != ownerID {
		return model.NewBookNotFoundError(bookID)
	}

	deleted, err := s.books.Delete(ctx, bookID)
	if err != nil {
		return fmt.Errorf("書籍の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewBookNotFoundError(bookID)
	}

	return nil
}

// validate は書籍入力の検証を行う。
func (s *Service) validate(input Input) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return model.NewValidationError("タイトルは必須です")
	}
	if len(title) > maxTitleLength {
		return model.NewValidationError("タイトルが長すぎます")
	}
	// 0は未評価を表す
	if input.Rating < 0 || input.Rating > 5 {
		return model.NewValidationError("評価は1〜5で指定してください")
	}
	if isbn := normalizeISBN(input.ISBN); len(isbn) > maxISBNLength {
		return model.NewValidationError("ISBNの形式が不正です")
	}
	return nil
}

// normalizeISBN はISBNの前後空白を除去する。ハイフンはそのまま保持する。
func normalizeISBN(isbn string) string {
	return strings.TrimSpace(isbn)
}
