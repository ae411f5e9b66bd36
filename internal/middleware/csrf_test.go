package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func csrfHandler() http.Handler {
	return NewCSRFMiddleware(CSRFConfig{})(okHandler())
}

// TestCSRFMiddleware_SafeMethods は安全なメソッドが検証なしで通過し、
// トークンCookieが設定されることを検証する。
func TestCSRFMiddleware_SafeMethods(t *testing.T) {
	handler := csrfHandler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName && c.Value != "" {
			found = true
			if c.HttpOnly {
				t.Error("CSRF cookie must be readable from the frontend")
			}
		}
	}
	if !found {
		t.Error("CSRF token cookie should be set on safe requests")
	}
}

// TestCSRFMiddleware_StateChanging は状態変更メソッドの検証を確認する。
func TestCSRFMiddleware_StateChanging(t *testing.T) {
	handler := csrfHandler()

	t.Run("Cookieとヘッダーが一致すれば通過する", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/events", nil)
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token-abc"})
		r.Header.Set(csrfHeaderName, "token-abc")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("Cookieなしは403", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/events", nil)
		r.Header.Set(csrfHeaderName, "token-abc")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("ヘッダーなしは403", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/events", nil)
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token-abc"})

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})

	t.Run("トークン不一致は403", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/events", nil)
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token-abc"})
		r.Header.Set(csrfHeaderName, "token-xyz")

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		if w.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", w.Code)
		}
	})
}

// TestCSRFTokenHandler はトークン取得エンドポイントを検証する。
func TestCSRFTokenHandler(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	t.Run("新規トークンが発行される", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["token"] == "" {
			t.Error("token should not be empty")
		}
	})

	t.Run("既存トークンが再利用される", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
		r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-token"})

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		var body map[string]string
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body["token"] != "existing-token" {
			t.Errorf("token = %q, want the existing cookie value", body["token"])
		}
	})
}
