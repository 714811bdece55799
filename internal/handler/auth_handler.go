// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/pixelforge/internal/model"
)

const (
	sessionCookieName       = "session_id"
	oauthStateCookie        = "oauth_state"
	postLoginRedirectCookie = "post_login_redirect"

	// state / 戻り先Cookieの有効期間。認証フロー完了までもてば十分
	oauthFlowCookieMaxAge = 600
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// setCookie はHTTP Only属性付きでCookieを設定する。maxAge -1で削除。
func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int, withDomain bool) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if withDomain {
		cookie.Domain = h.config.CookieDomain
	}
	http.SetCookie(w, cookie)
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login
//
// redirect_urlクエリがある場合はCookieに保持し、認証完了後の遷移先に使う。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// stateをCookieに保存（CSRF対策）
	h.setCookie(w, oauthStateCookie, state, oauthFlowCookieMaxAge, false)

	// 保護ページからリダイレクトされてきた場合の戻り先
	if redirectURL := r.URL.Query().Get("redirect_url"); redirectURL != "" && isLocalPath(redirectURL) {
		h.setCookie(w, postLoginRedirectCookie, redirectURL, oauthFlowCookieMaxAge, false)
	}

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value != state {
		slog.Warn("oauth state mismatch", slog.String("query_state", state))
		http.Error(w, "invalid state parameter", http.StatusBadRequest)
		return
	}
	h.setCookie(w, oauthStateCookie, "", -1, false)

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	// 初回ログイン時はユーザーレコードが自動作成される
	session, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.setCookie(w, sessionCookieName, session.ID, h.config.SessionMaxAge, true)

	// 戻り先の解決。保護ページ経由ならそのページ、それ以外はトップ
	destination := h.config.BaseURL
	if redirectCookie, cookieErr := r.Cookie(postLoginRedirectCookie); cookieErr == nil && isLocalPath(redirectCookie.Value) {
		destination = h.config.BaseURL + redirectCookie.Value
		h.setCookie(w, postLoginRedirectCookie, "", -1, false)
	}
	http.Redirect(w, r, destination, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
		}
	}

	h.setCookie(w, sessionCookieName, "", -1, true)
	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"id":        user.ID,
		"email":     user.Email,
		"name":      user.Name,
		"image_url": user.ImageURL,
		"plan":      string(user.Plan),
	})
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// isLocalPath はオープンリダイレクトを防ぐため、同一サイト内のパスのみ許可する。
func isLocalPath(p string) bool {
	return len(p) > 0 && p[0] == '/' && !(len(p) > 1 && p[1] == '/')
}
