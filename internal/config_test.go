package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.AuthEnabled())
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, AuthModeDisabled, cfg.Mode)
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.AuthEnabled())
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is empty")
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	assert.Error(t, cfg.Validate())
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	assert.Error(t, cfg.Validate(), "full config validate should catch auth error")
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.App.HTTP.Address())
	assert.Equal(t, "sqlite", cfg.SQLite.Driver)
}

func TestArchiveConfig_EmptyPath(t *testing.T) {
	cfg := ArchiveConfig{}
	assert.Error(t, cfg.Validate())
}

func TestSQLiteConfig_Driver(t *testing.T) {
	for _, d := range []string{"", "sqlite3", "sqlite"} {
		cfg := SQLiteConfig{Driver: d}
		assert.NoError(t, cfg.Validate(), "driver %q", d)
	}
	empty := SQLiteConfig{}
	require.NoError(t, empty.Validate())
	assert.Equal(t, "sqlite", empty.Driver)

	bad := SQLiteConfig{Driver: "postgres"}
	assert.Error(t, bad.Validate())
}

func TestExportConfig_Format(t *testing.T) {
	cfg := ExportConfig{Format: "HTML"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "html", cfg.Format)

	empty := ExportConfig{}
	require.NoError(t, empty.Validate())
	assert.Equal(t, "md", empty.Format)

	bad := ExportConfig{Format: "pdf"}
	assert.Error(t, bad.Validate())
}

func TestHTTPConfig_PortRange(t *testing.T) {
	cfg := HTTPConfig{Port: 70000}
	assert.Error(t, cfg.Validate())
}
