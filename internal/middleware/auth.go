// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/devent/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// authUserContextKey はリクエストコンテキストに認証済みユーザーを格納するためのキー。
var authUserContextKey = contextKey("auth_user")

// Authenticator はリクエストから本人性を解決するインターフェース。
// auth.Gatewayの部分集合として定義する。
type Authenticator interface {
	// Verify は本人性を解決する。未認証は(nil, nil)で表現される。
	Verify(r *http.Request) (*model.AuthUser, error)
}

// NewRequireAuthMiddleware はセッショントークンを検証し、認証済み
// ユーザーをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401を返す。
func NewRequireAuthMiddleware(authenticator Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(w, r, authenticator)
			if err != nil {
				return
			}
			if user == nil {
				WriteAPIError(w, model.NewUnauthenticatedError())
				return
			}

			ctx := ContextWithAuthUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOptionalAuthMiddleware はセッショントークンがあれば本人性を解決し、
// なければ匿名のままリクエストを通すミドルウェアを返す。
// 無効なトークンは匿名として扱われ、リクエストは拒否されない。
func NewOptionalAuthMiddleware(authenticator Authenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := resolveUser(w, r, authenticator)
			if err != nil {
				return
			}
			if user != nil {
				r = r.WithContext(ContextWithAuthUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveUser は本人性を解決する。ストア障害時はレスポンスを書き込み、
// 非nilのエラーを返して処理の中断を伝える。
func resolveUser(w http.ResponseWriter, r *http.Request, authenticator Authenticator) (*model.AuthUser, error) {
	user, err := authenticator.Verify(r)
	if err != nil {
		slog.Error("failed to verify session",
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		)
		writeResolveFailure(w, err)
		return nil, err
	}
	return user, nil
}

// writeResolveFailure は本人性解決の失敗レスポンスを書き込む。
func writeResolveFailure(w http.ResponseWriter, err error) {
	if apiErr, ok := model.AsAPIError(err); ok {
		WriteAPIError(w, apiErr)
		return
	}
	WriteInternalServerError(w)
}

// AuthUserFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過していないリクエストではnilを返す。
func AuthUserFromContext(ctx context.Context) *model.AuthUser {
	user, ok := ctx.Value(authUserContextKey).(*model.AuthUser)
	if !ok {
		return nil
	}
	return user
}

// ContextWithAuthUser はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAuthUser(ctx context.Context, user *model.AuthUser) context.Context {
	return context.WithValue(ctx, authUserContextKey, user)
}
