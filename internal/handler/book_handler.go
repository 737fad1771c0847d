package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookman/internal/book"
	"github.com/hitoshi/bookman/internal/middleware"
	"github.com/hitoshi/bookman/internal/model"
)

// BookServiceInterface は書籍ハンドラーが必要とするサービスインターフェース。
type BookServiceInterface interface {
	ListByOwner(ctx context.Context, username string) ([]model.BookWithOwner, error)
	Get(ctx context.Context, bookID string) (*model.Book, error)
	Create(ctx context.Context, owner *model.User, input book.Input) (*model.Book, error)
	Update(ctx context.Context, ownerID, bookID string, input book.Input) (*model.Book, error)
	Delete(ctx context.Context, ownerID, bookID string) error
}

// BookHandler は書籍管理のHTTPハンドラー。
type BookHandler struct {
	service BookServiceInterface
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service BookServiceInterface) *BookHandler {
	return &BookHandler{
		service: service,
	}
}

// bookRequest は書籍の作成・更新リクエストのボディ。
type bookRequest struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	ISBN    string `json:"isbn"`
	Rating  int    `json:"rating"`
	Summary string `json:"summary"`
	Notes   string `json:"notes"`
	Review  string `json:"review"`
}

func (req bookRequest) toInput() book.Input {
	return book.Input{
		Title:   req.Title,
		Author:  req.Author,
		ISBN:    req.ISBN,
		Rating:  req.Rating,
		Summary: req.Summary,
		Notes:   req.Notes,
		Review:  req.Review,
	}
}

// bookResponse は書籍情報のAPIレスポンス。
type bookResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	ISBN      string    `json:"isbn"`
	Rating    int       `json:"rating"`
	Summary   string    `json:"summary"`
	Notes     string    `json:"notes"`
	Review    string    `json:"review"`
	CoverURL  *string   `json:"cover_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// bookWithOwnerResponse は所有者情報付きの書籍レスポンス。
type bookWithOwnerResponse struct {
	bookResponse
	OwnerName     string `json:"owner_name"`
	OwnerUsername string `json:"owner_username"`
}

func toBookResponse(b *model.Book) bookResponse {
	resp := bookResponse{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		ISBN:      b.ISBN,
		Rating:    b.Rating,
		Summary:   b.Summary,
		Notes:     b.Notes,
		Review:    b.Review,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}

	// 表紙データがある場合はdata URLに変換
	if len(b.CoverData) > 0 && b.CoverMime != "" {
		dataURL := fmt.Sprintf("data:%s;base64,%s", b.CoverMime, base64.StdEncoding.EncodeToString(b.CoverData))
		resp.CoverURL = &dataURL
	}

	return resp
}

// ListBooks は指定ユーザーの書籍一覧を返す。
// GET /api/users/{username}/books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	books, err := h.service.ListByOwner(r.Context(), username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]bookWithOwnerResponse, len(books))
	for i, b := range books {
		results[i] = bookWithOwnerResponse{
			bookResponse:  toBookResponse(&b.Book),
			OwnerName:     b.OwnerName,
			OwnerUsername: b.OwnerUsername,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

// GetBook は書籍詳細を返す。
// GET /api/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")

	b, err := h.service.Get(r.Context(), bookID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toBookResponse(b))
}

// CreateBook は書籍を登録する。
// POST /api/users/{username}/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	owner, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	b, err := h.service.Create(r.Context(), owner, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toBookResponse(b))
}

// UpdateBook は書籍情報を更新する。
// PUT /api/users/{username}/books/{id}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	owner, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	bookID := chi.URLParam(r, "id")

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	b, err := h.service.Update(r.Context(), owner.ID, bookID, req.toInput())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toBookResponse(b))
}

// DeleteBook は書籍を削除する。
// DELETE /api/users/{username}/books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	owner, err := middleware.UserFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	bookID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), owner.ID, bookID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
