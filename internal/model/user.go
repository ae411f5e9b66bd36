// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはリポジトリのFindByEmailWithHash経由でのみ取得でき、
// それ以外の読み取り経路では常に空文字列となる。
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
}

// AuthUser は認証済みリクエストに紐付くユーザーの公開ビューを表す。
// パスワードハッシュを含まない形でハンドラーに渡される。
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PublicView はUserからパスワードハッシュを除いた公開ビューを返す。
func (u *User) PublicView() *AuthUser {
	return &AuthUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
	}
}
