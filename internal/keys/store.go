package keys

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// SecretStore holds named secrets such as the API bearer token.
type SecretStore interface {
	Get(id string) (string, error)
	Put(id, secret string) error
	Delete(id string) error
}

var ErrKeyNotFound = errors.New("key not found")

// TokenID names the bearer token in every store.
const TokenID = "auth.token"

// ConfigStore reads secrets straight from the loaded configuration. Writes
// only affect the in-memory config.
type ConfigStore struct {
	V *viper.Viper
}

func (s *ConfigStore) Get(id string) (string, error) {
	if s == nil || s.V == nil {
		return "", ErrKeyNotFound
	}
	val := strings.TrimSpace(s.V.GetString(id))
	if val == "" {
		return "", ErrKeyNotFound
	}
	return val, nil
}

func (s *ConfigStore) Put(id, secret string) error {
	s.V.Set(id, secret)
	return nil
}

func (s *ConfigStore) Delete(id string) error {
	if s == nil || s.V == nil {
		return nil
	}
	s.V.Set(id, "")
	return nil
}

// ForConfig picks the store named by auth.token_provider.
func ForConfig(v *viper.Viper) SecretStore {
	if strings.EqualFold(v.GetString("auth.token_provider"), "keyring") {
		return &KeyringStore{}
	}
	return &ConfigStore{V: v}
}

// ResolveToken loads the bearer token from the configured provider into
// auth.token. A missing keyring entry leaves auth disabled.
func ResolveToken(v *viper.Viper) error {
	s := ForConfig(v)
	if _, ok := s.(*ConfigStore); ok {
		return nil
	}
	tok, err := s.Get(TokenID)
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	v.Set(TokenID, tok)
	return nil
}
