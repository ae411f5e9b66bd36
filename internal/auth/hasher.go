// Package auth は認証情報の発行・検証とセッショントークン管理を提供する。
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultBcryptCost はbcryptのワークファクター。
// コスト12は新規アプリケーションでの推奨下限であり、計算時間は
// ブルートフォース攻撃を高価にしつつログイン遅延として許容できる範囲。
const defaultBcryptCost = 12

// PasswordHasher はbcryptによるパスワードハッシュの生成と検証を提供する。
// ソルトとコストはダイジェスト自体に埋め込まれるため、検証に
// 帯域外のパラメータは不要。コストは将来変更してもVerifyの互換性が保たれる。
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher はデフォルトコスト（12）のPasswordHasherを生成する。
func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: defaultBcryptCost}
}

// NewPasswordHasherWithCost は指定コストのPasswordHasherを生成する。
// テストではbcrypt.MinCostを指定してハッシュ計算を高速化する。
// 本番コードでは使用しないこと。
func NewPasswordHasherWithCost(cost int) *PasswordHasher {
	return &PasswordHasher{cost: cost}
}

// Hash は平文パスワードをbcryptでハッシュ化する。
// 出力はソルトとコストを含む自己記述的なダイジェスト文字列。
// bcryptは72バイトを超える入力を暗黙に切り詰めるため、明示的に拒否する。
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	if len(plaintext) > 72 {
		return "", fmt.Errorf("password must be 72 bytes or fewer")
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(digest), nil
}

// Verify は平文パスワードがダイジェストと一致するかを検証する。
// 不一致・ダイジェスト不正・内部エラーのすべてでfalseを返し、
// エラーを伝播しない。検証失敗は常にbool値であり、エラー形状による
// サイドチャネルを呼び出し側に漏らさない。
// bcryptの比較は内部で定数時間比較を使用する。
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
