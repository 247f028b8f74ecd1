package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/viper"
)

var validOutputs = map[string]bool{
	"plain": true, "pretty": true, "markdown": true, "html": true,
	"json": true, "ndjson": true, "tui": true,
}

// CheckConfigValidity reports every invalid setting at once.
func CheckConfigValidity(v *viper.Viper) error {
	var errs []error

	if strings.TrimSpace(v.GetString("data_dir")) == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}
	if dsn := v.GetString("db_url"); dsn != "" && !strings.HasPrefix(dsn, "sqlite://") && !strings.HasPrefix(dsn, "mem://") {
		errs = append(errs, fmt.Errorf("db_url %q must start with sqlite:// or mem://", dsn))
	}
	if out := strings.ToLower(v.GetString("output")); !validOutputs[out] {
		errs = append(errs, fmt.Errorf("output %q is not a known mode", out))
	}
	switch p := strings.ToLower(v.GetString("auth.token_provider")); p {
	case "", "config", "keyring":
	default:
		errs = append(errs, fmt.Errorf("auth.token_provider %q must be config or keyring", p))
	}
	if v.GetInt("render.word_wrap") < 0 {
		errs = append(errs, errors.New("render.word_wrap must not be negative"))
	}
	if v.GetInt("history.page_size") <= 0 {
		errs = append(errs, errors.New("history.page_size must be greater than 0"))
	}
	if addr := v.GetString("http_addr"); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("http_addr is invalid: %w", err))
		}
	}
	if addr := v.GetString("quic.addr"); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			errs = append(errs, fmt.Errorf("quic.addr is invalid: %w", err))
		}
	}
	cert, key := v.GetString("quic.cert_file"), v.GetString("quic.key_file")
	if (cert == "") != (key == "") {
		errs = append(errs, errors.New("quic.cert_file and quic.key_file must be set together"))
	}
	if v.GetString("quic.email") != "" && v.GetString("quic.domain") == "" {
		errs = append(errs, errors.New("quic.email requires quic.domain"))
	}
	return errors.Join(errs...)
}
