package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// tokenVersion は署名付きCookie値のフォーマットバージョン。
// フォーマットを変更する際はバージョンを上げ、旧バージョンは未認証として扱う。
const tokenVersion = "v1"

// Signer はセッショントークンの署名付きエンコード/デコードを提供する。
// Cookie値のフォーマットは "v1.<token>.<hex(hmac-sha256)>"。
// トークン自体はDBに保存される不透明値であり、署名はCookie改ざんの検出のみを目的とする。
type Signer struct {
	secret []byte
}

// NewSigner はSignerを生成する。
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign はトークンを署名付きCookie値にエンコードする。
func (s *Signer) Sign(token string) string {
	return tokenVersion + "." + token + "." + s.mac(token)
}

// Verify は署名付きCookie値を検証し、元のトークンを取り出す。
// バージョン不一致、フォーマット不正、署名不一致のいずれもfalseを返す。
// 署名比較はhmac.Equalによる定数時間比較。
func (s *Signer) Verify(value string) (string, bool) {
	parts := strings.Split(value, ".")
	if len(parts) != 3 {
		return "", false
	}
	version, token, sig := parts[0], parts[1], parts[2]
	if version != tokenVersion || token == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(token))) {
		return "", false
	}
	return token, true
}

// mac はバージョンプレフィックス込みのHMAC-SHA256を計算する。
func (s *Signer) mac(token string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(tokenVersion + "." + token))
	return hex.EncodeToString(h.Sum(nil))
}

// generateToken は暗号的に安全なセッショントークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
