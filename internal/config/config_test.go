package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigValidityValid(t *testing.T) {
	v := viper.New()
	applyDefaults(v)
	v.Set("data_dir", "/tmp/medchat")
	v.Set("quic.addr", ":4242")

	assert.NoError(t, CheckConfigValidity(v))
}

func TestCheckConfigValidityInvalid(t *testing.T) {
	v := viper.New()
	v.Set("data_dir", "")
	v.Set("db_url", "postgres://x")
	v.Set("output", "yaml")
	v.Set("render.word_wrap", -1)
	v.Set("history.page_size", 0)
	v.Set("http_addr", "nope")
	v.Set("quic.cert_file", "cert.pem")
	v.Set("quic.email", "ops@example.com")
	v.Set("auth.token_provider", "vault")

	err := CheckConfigValidity(v)
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"data_dir is required",
		"db_url",
		"output \"yaml\"",
		"render.word_wrap must not be negative",
		"history.page_size must be greater than 0",
		"http_addr is invalid",
		"quic.cert_file and quic.key_file must be set together",
		"quic.email requires quic.domain",
		"auth.token_provider \"vault\"",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("output = \"json\"\ndata_dir = \""+dir+"\"\n[history]\npage_size = 7\n"), 0o600))
	t.Setenv("MEDCHAT_HISTORY_PAGE_SIZE", "9")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, Load(context.Background(), v))

	assert.Equal(t, "json", v.GetString("output"))
	assert.Equal(t, 9, v.GetInt("history.page_size"))
	assert.Equal(t, "sqlite://"+filepath.Join(dir, "medchat.db"), v.GetString("db_url"))
	assert.Equal(t, "dracula", v.GetString("render.style"))
}

func TestRenderDefaultTOML_ParsesBack(t *testing.T) {
	out := RenderDefaultTOML()
	assert.Contains(t, out, "[quic]\n")
	assert.Contains(t, out, "page_size = 50")

	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(out)))
	assert.Equal(t, "pretty", v.GetString("output"))
	assert.Equal(t, true, v.GetBool("editor.delete_empty"))
}

func TestUpdateTOML(t *testing.T) {
	existing := "output = \"plain\"\nnamespace = \"work\"\n[render]\nstyle = \"light\"\n"
	got, changed := UpdateTOML(existing)
	require.True(t, changed)

	assert.Contains(t, got, "output = \"plain\"")
	assert.Contains(t, got, "# OUTDATED: option removed from config schema\n# namespace = \"work\"")
	assert.Contains(t, got, "style = \"light\"")
	assert.Contains(t, got, "# Added by config update")
	assert.Contains(t, got, "word_wrap = 0")

	again, changed := UpdateTOML(got)
	assert.False(t, changed)
	assert.Equal(t, got, again)
}

func TestGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	res, err := Generate(path, WriteNew)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, res.Backup)

	_, err = Generate(path, WriteNew)
	assert.ErrorIs(t, err, ErrConfigExists)

	res, err = Generate(path, WriteUpdate)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	require.NoError(t, os.WriteFile(path, []byte("output = \"json\"\n"), 0o600))
	res, err = Generate(path, WriteUpdate)
	require.NoError(t, err)
	assert.Equal(t, path+".bak", res.Backup)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "output = \"json\"")
	assert.Contains(t, string(data), "page_size = 50")

	res, err = Generate(path, WriteOverwrite)
	require.NoError(t, err)
	assert.Contains(t, res.Backup, ".bak-")
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, RenderDefaultTOML(), string(data))
}
