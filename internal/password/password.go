// Package password はパスワードの一方向ハッシュ化と照合を提供する。
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bookman/internal/model"
)

// hashCost はbcryptのコストファクタ。
// bcrypt.DefaultCost（10）を明示し、他実装との互換性を保つ。
const hashCost = 10

// Hash はパスワードをランダムソルト付きのbcryptハッシュに変換する。
func Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify はパスワードとハッシュを照合する。
// 連携ログイン専用アカウントの番兵値に対しては常にfalseを返す
// （パスワードを持たないアカウントにはパスワードでログインできない）。
// bcrypt.CompareHashAndPasswordは内部で定数時間比較を行う。
func Verify(password, hash string) bool {
	if hash == model.FederatedOnlyHash {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
