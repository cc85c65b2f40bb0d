package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Storage strategy names accepted in config.
const (
	StorageLocal  = "local"
	StorageRemote = "remote"
)

// Config carries every knob the server and helper commands need. Values come
// from an optional TOML file, then COTTAGEBOOK_* environment variables on top.
type Config struct {
	Bind           string `toml:"bind"`
	BaseURL        string `toml:"base_url"` // public base URL used for guest links
	Storage        string `toml:"storage"`  // "local" or "remote"
	SaveDebounceMS int    `toml:"save_debounce_ms"`

	GitHub     GitHubConfig     `toml:"github"`
	Cloudinary CloudinaryConfig `toml:"cloudinary"`
	Auth       AuthConfig       `toml:"auth"`
}

// GitHubConfig configures the remote-document persistence strategy. Token is
// optional; without it saves fall back to local storage plus manual export.
type GitHubConfig struct {
	Owner  string `toml:"owner"`
	Repo   string `toml:"repo"`
	Branch string `toml:"branch"`
	Path   string `toml:"path"`
	Token  string `toml:"token"`
}

// CloudinaryConfig configures unsigned photo uploads. CloudName empty means
// uploads are disabled.
type CloudinaryConfig struct {
	CloudName    string `toml:"cloud_name"`
	UploadPreset string `toml:"upload_preset"`
	Folder       string `toml:"folder"`
}

type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	JWTIssuer   string `toml:"jwt_issuer"`
	JWTTTLHours int    `toml:"jwt_ttl_hours"`
}

func (a AuthConfig) JWTDuration() time.Duration {
	if a.JWTTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.JWTTTLHours) * time.Hour
}

func (c Config) SaveDebounce() time.Duration {
	if c.SaveDebounceMS <= 0 {
		return time.Second
	}
	return time.Duration(c.SaveDebounceMS) * time.Millisecond
}

func defaultConfig() Config {
	return Config{
		Bind:    ":8080",
		BaseURL: "http://localhost:8080",
		Storage: StorageLocal,
		GitHub: GitHubConfig{
			Branch: "main",
			Path:   "scrapbooks.json",
		},
		Cloudinary: CloudinaryConfig{
			UploadPreset: "cottagebook",
			Folder:       "cottagebook",
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-change-me",
			JWTIssuer: "cottagebook",
		},
	}
}

// LoadConfig reads the config file named by COTTAGEBOOK_CONFIG (default
// ~/.cottagebook/config.toml, skipped when absent) and applies environment
// overrides. A broken config file is an error; a missing one is not.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	path := os.Getenv("COTTAGEBOOK_CONFIG")
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			path = filepath.Join(home, ".cottagebook", "config.toml")
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// no config file, defaults + env only
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Storage != StorageLocal && cfg.Storage != StorageRemote {
		return Config{}, fmt.Errorf("storage must be %q or %q, got %q", StorageLocal, StorageRemote, cfg.Storage)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Bind, "COTTAGEBOOK_BIND")
	setString(&cfg.BaseURL, "COTTAGEBOOK_BASE_URL")
	setString(&cfg.Storage, "COTTAGEBOOK_STORAGE")
	setInt(&cfg.SaveDebounceMS, "COTTAGEBOOK_SAVE_DEBOUNCE_MS")

	setString(&cfg.GitHub.Owner, "COTTAGEBOOK_GITHUB_OWNER")
	setString(&cfg.GitHub.Repo, "COTTAGEBOOK_GITHUB_REPO")
	setString(&cfg.GitHub.Branch, "COTTAGEBOOK_GITHUB_BRANCH")
	setString(&cfg.GitHub.Path, "COTTAGEBOOK_GITHUB_PATH")
	setString(&cfg.GitHub.Token, "COTTAGEBOOK_GITHUB_TOKEN")

	setString(&cfg.Cloudinary.CloudName, "COTTAGEBOOK_CLOUDINARY_CLOUD")
	setString(&cfg.Cloudinary.UploadPreset, "COTTAGEBOOK_CLOUDINARY_PRESET")
	setString(&cfg.Cloudinary.Folder, "COTTAGEBOOK_CLOUDINARY_FOLDER")

	setString(&cfg.Auth.JWTSecret, "COTTAGEBOOK_JWT_SECRET")
	setString(&cfg.Auth.JWTIssuer, "COTTAGEBOOK_JWT_ISSUER")
	setInt(&cfg.Auth.JWTTTLHours, "COTTAGEBOOK_JWT_TTL_HOURS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// bad override, keep the configured value
		return
	}
	*dst = n
}
