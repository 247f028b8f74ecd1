package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// applyDefaults seeds Viper with defaults defined in GetConfigOptions.
func applyDefaults(v *viper.Viper) {
	for _, o := range GetConfigOptions() {
		v.SetDefault(o.Key, o.Default)
	}
}

// Load resolves configuration with precedence: defaults < file < env.
// The provided Viper instance is mutated with defaults, file contents, and env.
func Load(ctx context.Context, v *viper.Viper) error {
	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "medchat"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "medchat"))
		}
		v.AddConfigPath(".")
	}

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; a broken one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && v.ConfigFileUsed() != "" && fileExists(v.ConfigFileUsed()) {
			return err
		}
	}

	// Environment variables: MEDCHAT_* (highest among these sources)
	v.SetEnvPrefix("medchat")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.GetString("data_dir") == "" {
		v.Set("data_dir", defaultDataDir())
	}
	if strings.TrimSpace(v.GetString("db_url")) == "" {
		v.Set("db_url", "sqlite://"+ResolveDBPath(v))
	}
	return CheckConfigValidity(v)
}

// defaultDataDir resolves default data dir: $XDG_DATA_HOME/medchat or ~/.local/share/medchat
func defaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "medchat")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "medchat")
}

// DefaultConfigPath resolves the standard config.toml location.
func DefaultConfigPath() string {
	xdg := os.Getenv("XDG_CONFIG_HOME")
	if xdg == "" {
		home, _ := os.UserHomeDir()
		xdg = filepath.Join(home, ".config")
	}
	return filepath.Join(xdg, "medchat", "config.toml")
}

type ConfigOption struct {
	Key     string
	Default any
	Comment string
}

// GetConfigOptions returns the default configuration options and their meanings.
// This is the single source of truth for defaults and generator output.
func GetConfigOptions() []ConfigOption {
	return []ConfigOption{
		{Key: "data_dir", Default: defaultDataDir(), Comment: "Directory for local state; DB is data_dir/medchat.db"},
		{Key: "db_url", Default: "", Comment: "Store DSN: sqlite://path or mem:// (empty uses data_dir)"},
		{Key: "output", Default: "pretty", Comment: "Default output mode: plain|pretty|markdown|html|json|ndjson|tui"},

		{Key: "http_addr", Default: "127.0.0.1:8080", Comment: "HTTP listen address for `serve`"},
		{Key: "auth.token", Default: "", Comment: "Bearer token required on /v1 routes (empty disables auth)"},
		{Key: "auth.token_provider", Default: "config", Comment: "Where the token lives: config (auth.token) or keyring (`config token set`)"},

		{Key: "render.style", Default: "dracula", Comment: "glamour style for pretty output (dark, light, dracula, notty, ...)"},
		{Key: "render.word_wrap", Default: 0, Comment: "Wrap width for pretty output; 0 follows the terminal"},

		{Key: "quic.addr", Default: "", Comment: "QUIC listen address for `serve` (empty disables QUIC)"},
		{Key: "quic.cert_file", Default: "", Comment: "PEM certificate for QUIC; with key_file, skips self-signed"},
		{Key: "quic.key_file", Default: "", Comment: "PEM private key for QUIC"},
		{Key: "quic.domain", Default: "", Comment: "Domain for an ACME certificate via certmagic"},
		{Key: "quic.email", Default: "", Comment: "ACME account email used with quic.domain"},

		{Key: "history.page_size", Default: 50, Comment: "Sessions and records listed per history query"},
		{Key: "editor.delete_empty", Default: true, Comment: "Discard the draft file when the editor exits with no content"},
	}
}

// ResolveDBPath returns the sqlite DB file path under data_dir.
func ResolveDBPath(v *viper.Viper) string {
	dir := v.GetString("data_dir")
	if dir == "" {
		dir = defaultDataDir()
	}
	// Expand ~ for convenience
	if len(dir) > 0 && dir[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, dir[1:])
		}
	}
	return filepath.Join(dir, "medchat.db")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
