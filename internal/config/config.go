// Package config は環境変数と任意のYAMLファイルからアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// IssuePolicy はトークン発行エンドポイントの発行方針。
type IssuePolicy string

const (
	// IssuePolicyRegistered は登録済みユーザーのメールアドレスにのみ発行する。
	IssuePolicyRegistered IssuePolicy = "registered"
	// IssuePolicyOpen は任意のペイロードに発行する。
	IssuePolicyOpen IssuePolicy = "open"
)

// 既定値。
const (
	defaultPort        = "5000"
	defaultDBPath      = "taskhub.db"
	defaultTokenTTL    = 7 * 24 * time.Hour
	defaultCORSOrigins = "*"
)

// ErrMissingSecret は署名用シークレットが設定されていない場合に返される。
var ErrMissingSecret = errors.New("ACCESS_TOKEN_SECRET が設定されていません")

// Config はアプリケーション設定。
type Config struct {
	// AccessTokenSecret はトークン署名用の秘密鍵。必須。
	AccessTokenSecret string `yaml:"access_token_secret"`
	// Port はHTTPサーバーのリッスンポート。
	Port string `yaml:"port"`
	// DBPath はSQLiteデータベースファイルのパス。
	DBPath string `yaml:"db_path"`
	// TokenTTL はトークンの有効期間。
	TokenTTL time.Duration `yaml:"token_ttl"`
	// IssuePolicy はトークン発行方針。
	IssuePolicy IssuePolicy `yaml:"issue_policy"`
	// CORSOrigins はCORSで許可するオリジン。"*" はすべて許可。
	CORSOrigins []string `yaml:"cors_origins"`
}

// Load は設定を読み込んで検証する。
// TASKHUB_CONFIG が指定されていればYAMLファイルを先に読み込み、環境変数で上書きする。
//
// 環境変数:
//   - ACCESS_TOKEN_SECRET（必須）
//   - PORT（既定: 5000）
//   - TASKHUB_DB_PATH（既定: taskhub.db）
//   - TASKHUB_TOKEN_TTL（既定: 168h）
//   - TASKHUB_ISSUE_POLICY（registered | open、既定: registered）
//   - TASKHUB_CORS_ORIGINS（カンマ区切り、既定: *）
func Load() (*Config, error) {
	cfg := &Config{}

	if path, ok := os.LookupEnv("TASKHUB_CONFIG"); ok && path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は設定値の整合性を検証する。
func (c *Config) Validate() error {
	if c.AccessTokenSecret == "" {
		return ErrMissingSecret
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("トークンの有効期間は正の値である必要があります: %s", c.TokenTTL)
	}
	switch c.IssuePolicy {
	case IssuePolicyRegistered, IssuePolicyOpen:
	default:
		return fmt.Errorf("不明なトークン発行方針です: %q", c.IssuePolicy)
	}
	return nil
}

// loadFile はYAMLファイルから設定を読み込む。
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルのパースに失敗: %w", err)
	}
	return nil
}

// applyEnv は環境変数の値で設定を上書きする。
func (c *Config) applyEnv() error {
	if v := os.Getenv("ACCESS_TOKEN_SECRET"); v != "" {
		c.AccessTokenSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("TASKHUB_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("TASKHUB_TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TASKHUB_TOKEN_TTL の値が不正です %q: %w", v, err)
		}
		c.TokenTTL = ttl
	}
	if v := os.Getenv("TASKHUB_ISSUE_POLICY"); v != "" {
		c.IssuePolicy = IssuePolicy(v)
	}
	if v := os.Getenv("TASKHUB_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	return nil
}

// applyDefaults は未設定の項目に既定値を設定する。
func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = defaultPort
	}
	if c.DBPath == "" {
		c.DBPath = defaultDBPath
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = defaultTokenTTL
	}
	if c.IssuePolicy == "" {
		c.IssuePolicy = IssuePolicyRegistered
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = splitList(defaultCORSOrigins)
	}
}

// splitList はカンマ区切りの文字列を空要素を除いて分割する。
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
