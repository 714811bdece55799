// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int

	// ImageKit互換メディアサービス
	MediaPrivateKey     string
	MediaURLEndpoint    string
	MediaUploadEndpoint string
	MediaUploadFolder   string

	// Upload
	UploadMaxSize int64
	ImportTimeout time.Duration
	ImportMaxSize int64

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitUpload  int

	// Worker
	CleanupInterval time.Duration

	// Server
	ServerPort string
	BaseURL    string
	SignInURL  string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	if cfg.GoogleRedirectURL == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.MediaPrivateKey = os.Getenv("IMAGEKIT_PRIVATE_KEY")
	if cfg.MediaPrivateKey == "" {
		missing = append(missing, "IMAGEKIT_PRIVATE_KEY")
	}

	cfg.MediaURLEndpoint = os.Getenv("IMAGEKIT_URL_ENDPOINT")
	if cfg.MediaURLEndpoint == "" {
		missing = append(missing, "IMAGEKIT_URL_ENDPOINT")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.MediaUploadEndpoint = getEnvString("IMAGEKIT_UPLOAD_ENDPOINT", "https://upload.imagekit.io/api/v1/files/upload")
	cfg.MediaUploadFolder = getEnvString("IMAGEKIT_UPLOAD_FOLDER", "/projects")
	cfg.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 20971520)
	cfg.ImportTimeout = getEnvDuration("IMPORT_TIMEOUT", 15*time.Second)
	cfg.ImportMaxSize = getEnvInt64("IMPORT_MAX_SIZE", 20971520)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 10)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 1*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.SignInURL = getEnvString("SIGN_IN_URL", cfg.BaseURL+"/sign-in")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
