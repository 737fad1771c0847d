package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bookman/internal/model"
)

// PostgresBookRepo はPostgreSQLを使用した書籍リポジトリ。
type PostgresBookRepo struct {
	db *sql.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sql.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

// FindByID は指定IDの書籍を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	book := &model.Book{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, author, isbn, rating, summary, notes, review,
		        cover_data, cover_mime, created_at, updated_at
		 FROM books WHERE id = $1`,
		id,
	).Scan(
		&book.ID, &book.UserID, &book.Title, &book.Author, &book.ISBN,
		&book.Rating, &book.Summary, &book.Notes, &book.Review,
		&book.CoverData, &book.CoverMime, &book.CreatedAt, &book.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book by ID: %w", err)
	}

	return book, nil
}

// ListByOwnerUsername は指定ユーザーの書籍一覧を所有者情報付きで返す。
func (r *PostgresBookRepo) ListByOwnerUsername(ctx context.Context, username string) ([]model.BookWithOwner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.user_id, b.title, b.author, b.isbn, b.rating,
		        b.summary, b.notes, b.review, b.cover_data, b.cover_mime,
		        b.created_at, b.updated_at, u.name, u.username
		 FROM books b
		 JOIN users u ON u.id = b.user_id
		 WHERE u.username = $1
		 ORDER BY b.created_at DESC`,
		username,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []model.BookWithOwner
	for rows.Next() {
		var b model.BookWithOwner
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.Title, &b.Author, &b.ISBN, &b.Rating,
			&b.Summary, &b.Notes, &b.Review, &b.CoverData, &b.CoverMime,
			&b.CreatedAt, &b.UpdatedAt, &b.OwnerName, &b.OwnerUsername,
		); err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate book rows: %w", err)
	}

	return books, nil
}

// Create は書籍を作成する。
func (r *PostgresBookRepo) Create(ctx context.Context, book *model.Book) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, user_id, title, author, isbn, rating, summary,
		                    notes, review, cover_data, cover_mime, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		book.ID, book.UserID, book.Title, book.Author, book.ISBN, book.Rating,
		book.Summary, book.Notes, book.Review, book.CoverData, book.CoverMime,
		book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	return nil
}

// Update は書籍情報を上書き更新する。該当行が無い場合はfalseを返す。
func (r *PostgresBookRepo) Update(ctx context.Context, book *model.Book) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE books
		 SET title = $1, author = $2, isbn = $3, rating = $4, summary = $5,
		     notes = $6, review = $7, updated_at = $8
		 WHERE id = $9`,
		book.Title, book.Author, book.ISBN, book.Rating, book.Summary,
		book.Notes, book.Review, book.UpdatedAt, book.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update book: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete は指定IDの書籍を削除する。該当行が無い場合はfalseを返す。
func (r *PostgresBookRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM books WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete book: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpdateCover は書籍の表紙画像データを更新する。
func (r *PostgresBookRepo) UpdateCover(ctx context.Context, bookID string, coverData []byte, coverMime string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE books SET cover_data = $1, cover_mime = $2, updated_at = now()
		 WHERE id = $3`,
		coverData, coverMime, bookID,
	)
	if err != nil {
		return fmt.Errorf("failed to update book cover: %w", err)
	}
	return nil
}

// ListMissingCovers はISBNがあり表紙画像が未取得の書籍を取得する。
// ワーカーのプリフェッチ対象の選定に使用する。
func (r *PostgresBookRepo) ListMissingCovers(ctx context.Context, limit int) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, author, isbn, rating, summary, notes, review,
		        cover_data, cover_mime, created_at, updated_at
		 FROM books
		 WHERE isbn <> '' AND cover_data IS NULL
		 ORDER BY created_at
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list books missing covers: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book := &model.Book{}
		if err := rows.Scan(
			&book.ID, &book.UserID, &book.Title, &book.Author, &book.ISBN,
			&book.Rating, &book.Summary, &book.Notes, &book.Review,
			&book.CoverData, &book.CoverMime, &book.CreatedAt, &book.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate book rows: %w", err)
	}

	return books, nil
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)
