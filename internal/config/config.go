package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義
const (
	DefaultBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	DefaultImageModel   = "gemini-2.0-flash-exp-image-generation"
	DefaultMaxRequests  = 10
	DefaultRequests     = 1
	DefaultMaxAttempts  = 5
	DefaultBaseDelay    = 2 * time.Second
	DefaultHTTPTimeout  = 0 // 0 はタイムアウト無し
	DefaultFetchTimeout = 30 * time.Second
	DefaultOutputDir    = "output"
	DefaultGalleryFile  = "output/gallery.html"
	DefaultFakeAddr     = "127.0.0.1:8089"
	DefaultEnvFile      = ".env"
)

// Config は環境変数から読み込むアプリケーション全体の設定です。
type Config struct {
	GeminiAPIKey     string
	GeminiBaseURL    string
	GeminiImageModel string
	MaxRequests      int
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	ThemeFile        string

	Options GenerateOptions
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータです。
type GenerateOptions struct {
	// 入力
	Prompt string // --prompt
	Image1 string // --image1
	Image2 string // --image2

	// 生成
	Model    string // --model
	Requests int    // --requests
	Policy   string // --policy: per-unit | first-unit
	Backend  string // --backend: rest | sdk

	// 出力
	OutputDir   string // --output-dir
	GalleryFile string // --html
	NoSave      bool   // --no-save

	// 実行制御
	HTTPTimeout      time.Duration // --http-timeout
	Concurrency      int           // --concurrency
	DispatchInterval time.Duration // --dispatch-interval
	CompressQuality  int           // --compress
}

// LoadEnvFile は .env ファイルがあれば読み込みます。無ければ何もしません。
func LoadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf(".env ファイルの読み込みに失敗しました: %w", err)
	}
	slog.Debug("Loaded environment file", "path", path)
	return nil
}

// LoadConfig は環境変数から設定を読み込みます。数値や期間の解釈に失敗した場合はデフォルト値を使います。
func LoadConfig() *Config {
	return &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:    envutil.GetEnv("GEMINI_BASE_URL", DefaultBaseURL),
		GeminiImageModel: envutil.GetEnv("GEMINI_IMAGE_MODEL", DefaultImageModel),
		MaxRequests:      intEnv("MAX_REQUESTS", DefaultMaxRequests),
		RetryMaxAttempts: intEnv("RETRY_MAX_ATTEMPTS", DefaultMaxAttempts),
		RetryBaseDelay:   durationEnv("RETRY_BASE_DELAY", DefaultBaseDelay),
		ThemeFile:        envutil.GetEnv("THEME_FILE", ""),
	}
}

func intEnv(key string, def int) int {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		slog.Warn("Invalid integer environment variable, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		slog.Warn("Invalid duration environment variable, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return v
}
