// Package preference は表示テーマの設定をローカルファイルに保存します。
package preference

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Theme は表示テーマです。
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme は文字列をテーマとして解釈します。
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark:
		return t, nil
	default:
		return "", fmt.Errorf("unknown theme %q (expected light or dark)", s)
	}
}

// Toggled は反対のテーマを返します。
func (t Theme) Toggled() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

type settings struct {
	Theme Theme `yaml:"theme"`
}

// Store は YAML ファイルに保存されたユーザー設定です。
type Store struct {
	Path string
}

// DefaultPath はユーザー設定ディレクトリ配下の保存先を返します。
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("設定ディレクトリの取得に失敗しました: %w", err)
	}
	return filepath.Join(dir, "gemini-fanout-kit", "preferences.yaml"), nil
}

// NewStore は path を保存先とする Store を返します。path が空なら DefaultPath を使います。
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{Path: path}, nil
}

// Theme は保存済みのテーマを返します。未保存や不正な値の場合は ThemeLight です。
func (s *Store) Theme() (Theme, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return ThemeLight, nil
	}
	if err != nil {
		return ThemeLight, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}

	var cfg settings
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ThemeLight, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}
	if t, err := ParseTheme(string(cfg.Theme)); err == nil {
		return t, nil
	}
	return ThemeLight, nil
}

// SetTheme はテーマを保存します。
func (s *Store) SetTheme(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings{Theme: t})
	if err != nil {
		return fmt.Errorf("設定のシリアライズに失敗しました: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("設定ディレクトリの作成に失敗しました: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("設定ファイルの書き込みに失敗しました: %w", err)
	}
	return nil
}

// Toggle は現在のテーマを反転して保存し、新しいテーマを返します。
func (s *Store) Toggle() (Theme, error) {
	cur, err := s.Theme()
	if err != nil {
		return cur, err
	}
	next := cur.Toggled()
	if err := s.SetTheme(next); err != nil {
		return cur, err
	}
	return next, nil
}
