package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-signing-secret"

// TestTokenCodec_IssueAndVerify は発行したトークンがTTL内で検証でき、
// クレームが発行時の内容と一致することを検証する。
func TestTokenCodec_IssueAndVerify(t *testing.T) {
	c := NewTokenCodec(testSecret)

	token, err := c.Issue("user-123", "ann@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := c.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "user-123")
	}
	if claims.Email != "ann@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "ann@example.com")
	}

	// 有効期限はおよそ発行時刻+7日
	wantExpiry := time.Now().Add(SessionTTL)
	gotExpiry := claims.ExpiresAt.Time
	if gotExpiry.Before(wantExpiry.Add(-time.Minute)) || gotExpiry.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want around %v", gotExpiry, wantExpiry)
	}
}

// TestTokenCodec_Verify_Expired は期限切れトークンがErrInvalidTokenに
// 合流することを検証する。
func TestTokenCodec_Verify_Expired(t *testing.T) {
	c := newTokenCodecWithTTL(testSecret, -time.Hour)

	token, err := c.Issue("user-123", "ann@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := c.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify of expired token = %v, want ErrInvalidToken", err)
	}
}

// TestTokenCodec_Verify_Tampered はトークンの任意のバイトを改ざんすると
// 検証が失敗することを検証する。
func TestTokenCodec_Verify_Tampered(t *testing.T) {
	c := NewTokenCodec(testSecret)

	token, err := c.Issue("user-123", "ann@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// ヘッダー・ペイロード・署名の各セグメントを1バイトずつ改ざんする
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token should have 3 segments, got %d", len(parts))
	}

	for i, name := range []string{"header", "payload", "signature"} {
		t.Run(name, func(t *testing.T) {
			tampered := make([]string, 3)
			copy(tampered, parts)

			seg := []byte(tampered[i])
			if seg[0] == 'A' {
				seg[0] = 'B'
			} else {
				seg[0] = 'A'
			}
			tampered[i] = string(seg)

			if _, err := c.Verify(strings.Join(tampered, ".")); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify of tampered %s = %v, want ErrInvalidToken", name, err)
			}
		})
	}
}

// TestTokenCodec_Verify_WrongSecret は異なるシークレットで署名された
// トークンが拒否されることを検証する。
func TestTokenCodec_Verify_WrongSecret(t *testing.T) {
	issuer := NewTokenCodec("secret-a")
	verifier := NewTokenCodec("secret-b")

	token, err := issuer.Issue("user-123", "ann@example.com")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify with wrong secret = %v, want ErrInvalidToken", err)
	}
}

// TestTokenCodec_Verify_Malformed は構造不正なトークンがすべて
// 単一のErrInvalidTokenに合流することを検証する。
func TestTokenCodec_Verify_Malformed(t *testing.T) {
	c := NewTokenCodec(testSecret)

	cases := []struct {
		name  string
		token string
	}{
		{"空トークン", ""},
		{"JWT形式でない文字列", "not-a-jwt"},
		{"セグメント不足", "aaaa.bbbb"},
		{"alg=noneトークン", "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJ1c2VyLTEyMyJ9."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := c.Verify(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify(%q) = %v, want ErrInvalidToken", tc.token, err)
			}
		})
	}
}

// TestTokenCodec_Issue_RequiresSubject は空のユーザーIDでの発行が
// 拒否されることを検証する。
func TestTokenCodec_Issue_RequiresSubject(t *testing.T) {
	c := NewTokenCodec(testSecret)

	if _, err := c.Issue("", "ann@example.com"); err == nil {
		t.Error("Issue should reject an empty user ID")
	}
}
