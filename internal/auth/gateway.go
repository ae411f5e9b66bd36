package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hitoshi/devent/internal/model"
	"github.com/hitoshi/devent/internal/repository"
)

// Gateway はリクエスト境界の認証ゲートウェイ。
// トランスポート（Cookie）からセッショントークンを取り出し、
// TokenCodecで検証し、Credential Storeで実在確認した上で
// 認証済みユーザーを返す。
//
// リクエストごとの状態遷移:
//
//	Cookieなし → 未認証
//	Cookieあり → 署名検証 → {不正 → 未認証,
//	                          有効 → ユーザー解決 → {不在 → 未認証, 実在 → 認証済み}}
//
// リクエスト内での再試行はなく、認証状態は毎リクエスト
// トークンから再導出される（トークン以外のセッションキャッシュは持たない）。
type Gateway struct {
	codec    *TokenCodec
	userRepo repository.UserRepository
	metrics  TokenVerifyRecorder
}

// TokenVerifyRecorder はトークン検証結果の記録インターフェース。
// outcomeには"success"または"failure"を渡す。
type TokenVerifyRecorder interface {
	RecordTokenVerify(outcome string)
}

// noopTokenVerifyRecorder は何も記録しないTokenVerifyRecorder。
type noopTokenVerifyRecorder struct{}

func (noopTokenVerifyRecorder) RecordTokenVerify(string) {}

// NewGateway はGatewayを生成する。
func NewGateway(codec *TokenCodec, userRepo repository.UserRepository) *Gateway {
	return &Gateway{
		codec:    codec,
		userRepo: userRepo,
		metrics:  noopTokenVerifyRecorder{},
	}
}

// NewGatewayWithMetrics はトークン検証結果をメトリクスに記録するGatewayを生成する。
func NewGatewayWithMetrics(codec *TokenCodec, userRepo repository.UserRepository, recorder TokenVerifyRecorder) *Gateway {
	return &Gateway{
		codec:    codec,
		userRepo: userRepo,
		metrics:  recorder,
	}
}

// Verify はリクエストのtokenCookieから認証済みユーザーを解決する。
//
// Cookieの欠落・トークン不正・期限切れ・ユーザー不在（発行後に削除された
// 場合を含む）はいずれもエラーではなく (nil, nil) を返す。「セッションなし」は
// 正常な状態であるため。エラーが返るのはストア障害のみ。
func (g *Gateway) Verify(r *http.Request) (*model.AuthUser, error) {
	cookie, err := r.Cookie(TokenCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	claims, err := g.codec.Verify(cookie.Value)
	if err != nil {
		g.metrics.RecordTokenVerify("failure")
		if errors.Is(err, ErrInvalidToken) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to verify session token: %w", err)
	}
	g.metrics.RecordTokenVerify("success")

	user, err := g.userRepo.FindByID(r.Context(), claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user identity: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	return user.PublicView(), nil
}

// Require はVerifyを呼び、未認証の場合はAPIError(UNAUTHENTICATED)を返す。
// 保護されたエンドポイントはこの結果をトランスポートレベルの
// 拒否（401）に変換する。
func (g *Gateway) Require(r *http.Request) (*model.AuthUser, error) {
	user, err := g.Verify(r)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUnauthenticatedError()
	}
	return user, nil
}
