// Package cover は書籍の表紙画像の外部取得を提供する。
package cover

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxCoverSize は表紙画像の最大サイズ（2MB）。
const maxCoverSize = 2 * 1024 * 1024

// fetchTimeout は表紙取得のタイムアウト。
const fetchTimeout = 10 * time.Second

// DefaultBaseURL はOpen Library Covers APIのベースURL。
const DefaultBaseURL = "https://covers.openlibrary.org"

// SSRFValidator はSSRF防止機能のうち表紙取得が必要とする部分のインターフェース。
type SSRFValidator interface {
	NewSafeClient(timeout time.Duration) *http.Client
	ValidateURL(rawURL string) error
}

// FetcherService は表紙画像取得のインターフェース。
type FetcherService interface {
	// FetchByISBN はISBNから表紙画像を取得する。
	// 表紙が存在しない場合はnilデータと空MIMEを返す（エラーは返さない）。
	FetchByISBN(ctx context.Context, isbn string) (data []byte, mimeType string, err error)
}

// Fetcher はOpen Library Covers APIから表紙画像を取得する。
type Fetcher struct {
	ssrfGuard SSRFValidator
	baseURL   string
}

// NewFetcher はFetcherの新しいインスタンスを生成する。
// baseURLが空の場合はDefaultBaseURLを使用する。
func NewFetcher(ssrfGuard SSRFValidator, baseURL string) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fetcher{
		ssrfGuard: ssrfGuard,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

// FetchByISBN はISBNから表紙画像を取得する。
// default=falseを指定することで、表紙が存在しない場合は
// プレースホルダー画像ではなく404が返る。
// 取得失敗時はnilデータと空MIMEを返す（表紙なしとして扱う）。
func (f *Fetcher) FetchByISBN(ctx context.Context, isbn string) ([]byte, string, error) {
	if isbn == "" {
		return nil, "", nil
	}

	coverURL := fmt.Sprintf("%s/b/isbn/%s-L.jpg?default=false", f.baseURL, isbn)

	// SSRF検証
	if f.ssrfGuard != nil {
		if err := f.ssrfGuard.ValidateURL(coverURL); err != nil {
			slog.Warn("表紙取得: SSRFブロック", "url", coverURL, "error", err)
			return nil, "", nil
		}
	}

	client := f.getHTTPClient()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		slog.Warn("表紙取得: リクエスト作成失敗", "isbn", isbn, "error", err)
		return nil, "", nil
	}
	req.Header.Set("User-Agent", "Bookman/1.0 Book Tracker")

	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("表紙取得: HTTPリクエスト失敗", "isbn", isbn, "error", err)
		return nil, "", nil
	}
	defer resp.Body.Close()

	// 2xx以外は表紙なしとして扱う
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Info("表紙取得: 表紙なし", "isbn", isbn, "status", resp.StatusCode)
		return nil, "", nil
	}

	// レスポンスボディを読み込み（最大2MB）
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize+1))
	if err != nil {
		slog.Warn("表紙取得: レスポンス読み取り失敗", "isbn", isbn, "error", err)
		return nil, "", nil
	}

	// サイズ超過チェック
	if int64(len(body)) > maxCoverSize {
		slog.Warn("表紙取得: サイズ超過", "isbn", isbn, "size", len(body))
		return nil, "", nil
	}

	mimeType := extractMimeType(resp.Header.Get("Content-Type"))
	if !isImageMime(mimeType) {
		slog.Warn("表紙取得: 画像以外のContent-Type", "isbn", isbn, "contentType", mimeType)
		return nil, "", nil
	}

	return body, mimeType, nil
}

// getHTTPClient はHTTPクライアントを取得する。
func (f *Fetcher) getHTTPClient() *http.Client {
	if f.ssrfGuard != nil {
		return f.ssrfGuard.NewSafeClient(fetchTimeout)
	}
	return &http.Client{Timeout: fetchTimeout}
}

// extractMimeType はContent-Typeヘッダーからメディアタイプを抽出する。
func extractMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	// セミコロンの前の部分（charset等を除去）
	parts := strings.SplitN(contentType, ";", 2)
	return strings.TrimSpace(strings.ToLower(parts[0]))
}

// isImageMime はMIMEタイプが画像かどうかを判定する。
func isImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

var _ FetcherService = (*Fetcher)(nil)
