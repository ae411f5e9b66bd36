package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL はセッショントークンの有効期間。
const SessionTTL = 7 * 24 * time.Hour

// TokenCookieName はセッショントークンを格納するCookieの名前。
const TokenCookieName = "token"

// ErrInvalidToken はトークン検証失敗を表す。
// 構造不正・署名不一致・期限切れはすべてこのエラーに合流する。
// 攻撃者に検証オラクルを与えないため、原因の区別は呼び出し側に公開しない。
var ErrInvalidToken = errors.New("invalid token")

// Claims はセッショントークンに埋め込む認証済みユーザーの情報。
// Subjectにユーザーid、Emailに利便性のためのメールアドレスの複製を持つ。
// 発行後のクレームは不変であり、検証は副作用を持たない。
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenCodec はHMAC-SHA-256で署名されたコンパクトなセッショントークンを
// 発行・検証する。発行者と検証者が同一プロセスであるため対称署名で足りる。
// 有効期限はトークン自体に埋め込まれ、サーバー側のセッションテーブルは持たない。
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec は指定されたシークレットでTokenCodecを生成する。
// TTLはSessionTTL（7日）固定。
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    SessionTTL,
	}
}

// newTokenCodecWithTTL はTTLを差し替えたTokenCodecを生成する。
// 期限切れ検証のテスト専用。
func newTokenCodecWithTTL(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue は指定ユーザーのセッショントークンを発行する。
// クレームは {sub: userID, email, iat, exp: iat+TTL}。
func (c *TokenCodec) Issue(userID, email string) (string, error) {
	if userID == "" {
		return "", ErrInvalidToken
	}

	now := time.Now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
// 署名検証が先、期限検証が後。どちらかでも失敗した場合は
// ErrInvalidTokenを返す。クロックスキューの許容はライブラリの
// デフォルトに従う（追加の猶予は与えない）。
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// アルゴリズム混同攻撃の防止: HMAC以外の署名方式を拒否する
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
