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

	// Advisory（リマインダー通知ワーカー）
	AdvisoryInterval time.Duration
	Timezone         string

	// Rate Limit
	RateLimitGeneral int // 認証済みAPI全般（req/min/user）
	RateLimitCheckin int // 公開チェックイン（req/min/IP）

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string

	// クライアント実行時設定（HTMLに window.ENV として埋め込まれる6項目）
	ClientAPIKey            string
	ClientAuthDomain        string
	ClientProjectID         string
	ClientStorageBucket     string
	ClientMessagingSenderID string
	ClientAppID             string
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

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.AdvisoryInterval = getEnvDuration("ADVISORY_INTERVAL", time.Minute)
	cfg.Timezone = getEnvString("TIMEZONE", "UTC")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitCheckin = getEnvInt("RATE_LIMIT_CHECKIN", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	// クライアント実行時設定（未設定は空文字のまま埋め込む）
	cfg.ClientAPIKey = os.Getenv("CLIENT_API_KEY")
	cfg.ClientAuthDomain = os.Getenv("CLIENT_AUTH_DOMAIN")
	cfg.ClientProjectID = os.Getenv("CLIENT_PROJECT_ID")
	cfg.ClientStorageBucket = os.Getenv("CLIENT_STORAGE_BUCKET")
	cfg.ClientMessagingSenderID = os.Getenv("CLIENT_MESSAGING_SENDER_ID")
	cfg.ClientAppID = os.Getenv("CLIENT_APP_ID")

	return cfg, nil
}

// Location はTimezone設定に対応するtime.Locationを返す。
// 解決できない場合はUTCにフォールバックする。
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ClientEnv はHTMLに埋め込むクライアント実行時設定のマップを返す。
// キー名はクライアントコードが参照する window.ENV のプロパティ名。
func (c *Config) ClientEnv() map[string]string {
	return map[string]string{
		"API_KEY":             c.ClientAPIKey,
		"AUTH_DOMAIN":         c.ClientAuthDomain,
		"PROJECT_ID":          c.ClientProjectID,
		"STORAGE_BUCKET":      c.ClientStorageBucket,
		"MESSAGING_SENDER_ID": c.ClientMessagingSenderID,
		"APP_ID":              c.ClientAppID,
	}
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
