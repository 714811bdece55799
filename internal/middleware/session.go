// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/pixelforge/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済みユーザーIDをリクエストコンテキストに注入する。
// 未認証リクエストには統一エラーフォーマットで401を返す。
func NewSessionMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolveSessionUser(w, r, sessionFinder)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewPageAuthMiddleware は保護対象ページへの未認証アクセスを
// サインインページへリダイレクトするミドルウェアを返す。
// 元のアクセス先はredirect_urlクエリパラメータで引き継がれる。
// 保護対象外のパスはそのまま通す。
func NewPageAuthMiddleware(sessionFinder SessionFinder, signInURL string, protectedPrefixes []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected := false
			for _, prefix := range protectedPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					protected = true
					break
				}
			}
			if !protected {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := resolveSessionUser(w, r, sessionFinder)
			if !ok {
				redirectTo := signInURL + "?redirect_url=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, redirectTo, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveSessionUser はCookieのセッションIDを検証し、ユーザーIDを返す。
// セッションが無効な場合はfalseを返す（レスポンスは書き込まない）。
func resolveSessionUser(_ http.ResponseWriter, r *http.Request, sessionFinder SessionFinder) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to find session",
			slog.String("error", err.Error()),
		)
		return "", false
	}
	if session == nil {
		return "", false
	}

	return session.UserID, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
