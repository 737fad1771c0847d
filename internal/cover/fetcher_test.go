package cover

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// 正常な画像レスポンスが取得できることを検証
func TestFetchByISBN_Success(t *testing.T) {
	imageData := []byte("fake-jpeg-bytes")
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(imageData)
	}))
	defer ts.Close()

	// SSRFガードなし（httptestはループバックで起動するため）
	fetcher := NewFetcher(nil, ts.URL)

	data, mime, err := fetcher.FetchByISBN(context.Background(), "9780140328721")
	if err != nil {
		t.Fatalf("FetchByISBN() error = %v", err)
	}
	if string(data) != string(imageData) {
		t.Errorf("data = %q, want %q", data, imageData)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", mime)
	}
	if gotPath != "/b/isbn/9780140328721-L.jpg" {
		t.Errorf("request path = %q, want /b/isbn/9780140328721-L.jpg", gotPath)
	}
}

// default=falseクエリが付与されることを検証
func TestFetchByISBN_RequestsNoPlaceholder(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("x"))
	}))
	defer ts.Close()

	fetcher := NewFetcher(nil, ts.URL)
	fetcher.FetchByISBN(context.Background(), "9780140328721")

	if !strings.Contains(gotQuery, "default=false") {
		t.Errorf("query = %q, want to contain default=false", gotQuery)
	}
}

// 404が表紙なしとして扱われることを検証
func TestFetchByISBN_NotFound_ReturnsNil(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	fetcher := NewFetcher(nil, ts.URL)

	data, mime, err := fetcher.FetchByISBN(context.Background(), "0000000000000")
	if err != nil {
		t.Fatalf("FetchByISBN() error = %v", err)
	}
	if data != nil || mime != "" {
		t.Errorf("data = %v, mime = %q, want nil and empty", data, mime)
	}
}

// 画像以外のContent-Typeが表紙なしとして扱われることを検証
func TestFetchByISBN_NonImageContentType_ReturnsNil(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not found</html>"))
	}))
	defer ts.Close()

	fetcher := NewFetcher(nil, ts.URL)

	data, _, err := fetcher.FetchByISBN(context.Background(), "9780140328721")
	if err != nil {
		t.Fatalf("FetchByISBN() error = %v", err)
	}
	if data != nil {
		t.Errorf("data = %v, want nil for non-image content type", data)
	}
}

// サイズ超過のレスポンスが表紙なしとして扱われることを検証
func TestFetchByISBN_OversizedResponse_ReturnsNil(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(make([]byte, maxCoverSize+1))
	}))
	defer ts.Close()

	fetcher := NewFetcher(nil, ts.URL)

	data, _, err := fetcher.FetchByISBN(context.Background(), "9780140328721")
	if err != nil {
		t.Fatalf("FetchByISBN() error = %v", err)
	}
	if data != nil {
		t.Error("data should be nil for oversized response")
	}
}

// 空ISBNが即座にnilを返すことを検証
func TestFetchByISBN_EmptyISBN_ReturnsNil(t *testing.T) {
	fetcher := NewFetcher(nil, "")

	data, mime, err := fetcher.FetchByISBN(context.Background(), "")
	if err != nil {
		t.Fatalf("FetchByISBN() error = %v", err)
	}
	if data != nil || mime != "" {
		t.Errorf("data = %v, mime = %q, want nil and empty", data, mime)
	}
}

// ベースURL未指定時にOpen LibraryのURLが使われることを検証
func TestNewFetcher_DefaultBaseURL(t *testing.T) {
	fetcher := NewFetcher(nil, "")
	if fetcher.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", fetcher.baseURL, DefaultBaseURL)
	}
}
