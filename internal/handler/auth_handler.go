// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/devent/internal/auth"
	"github.com/hitoshi/devent/internal/metrics"
	"github.com/hitoshi/devent/internal/middleware"
	"github.com/hitoshi/devent/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Signup はユーザーを登録し、本人情報とセッショントークンを返す。
	Signup(ctx context.Context, email, password, name string) (*model.AuthUser, string, error)
	// Login は認証情報を検証し、本人情報とセッショントークンを返す。
	Login(ctx context.Context, email, password string) (*model.AuthUser, string, error)
}

// WithdrawServiceInterface は退会処理のインターフェース。
type WithdrawServiceInterface interface {
	Withdraw(ctx context.Context, userID string) error
}

// AuthMetricsRecorder は認証系メトリクスの記録インターフェース。
type AuthMetricsRecorder interface {
	RecordSignup(outcome string)
	RecordLogin(outcome string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain string
	CookieSecure bool
}

// AuthHandler はセッション認証関連のHTTPハンドラー。
type AuthHandler struct {
	service         AuthServiceInterface
	withdrawService WithdrawServiceInterface
	metrics         AuthMetricsRecorder
	config          AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(
	service AuthServiceInterface,
	withdrawService WithdrawServiceInterface,
	metrics AuthMetricsRecorder,
	config AuthHandlerConfig,
) *AuthHandler {
	return &AuthHandler{
		service:         service,
		withdrawService: withdrawService,
		metrics:         metrics,
		config:          config,
	}
}

// credentialsRequest はサインアップ・ログインリクエストのボディ。
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// authResponse は認証成功時のレスポンス。
type authResponse struct {
	User *model.AuthUser `json:"user"`
}

// Signup は新規ユーザー登録を処理する。
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordSignup(metrics.OutcomeFailure)
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	user, token, err := h.service.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.metrics.RecordSignup(metrics.OutcomeFailure)
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordSignup(metrics.OutcomeSuccess)
	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, authResponse{User: user})
}

// Login は既存ユーザーのログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordLogin(metrics.OutcomeFailure)
		middleware.WriteAPIError(w, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.RecordLogin(metrics.OutcomeFailure)
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordLogin(metrics.OutcomeSuccess)
	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, authResponse{User: user})
}

// Logout はセッションCookieを破棄する。
// トークン自体の失効は行わない（有効期限まで発行済みトークンは有効）。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "ログアウトしました"})
}

// Profile は認証済みユーザー自身の情報を返す。
// GET /api/auth/profile（認証必須ルート）
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := middleware.AuthUserFromContext(r.Context())
	if user == nil {
		middleware.WriteAPIError(w, model.NewUnauthenticatedError())
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user})
}

// Withdraw は認証済みユーザーの退会を処理する。
// DELETE /api/auth/account（認証必須ルート）
func (h *AuthHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	user := middleware.AuthUserFromContext(r.Context())
	if user == nil {
		middleware.WriteAPIError(w, model.NewUnauthenticatedError())
		return
	}

	if err := h.withdrawService.Withdraw(r.Context(), user.ID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// setSessionCookie はセッショントークンをHTTP Only Cookieとして設定する。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(auth.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	if apiErr, ok := model.AsAPIError(err); ok {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
