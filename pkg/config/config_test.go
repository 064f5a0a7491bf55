package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `yaml:"name" toml:"name"`
	Port int    `yaml:"port" toml:"port"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is empty")
	}
	return nil
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "archive")
	path := writeFile(t, "config.yaml", "name: ${SAMPLE_NAME}\nport: 9000\n")

	var s sample
	require.NoError(t, Load(path, &s))
	assert.Equal(t, sample{Name: "archive", Port: 9000}, s)
}

func TestLoad_TOML(t *testing.T) {
	t.Setenv("SAMPLE_PORT", "7000")
	path := writeFile(t, "config.toml", "name = \"archive\"\nport = ${SAMPLE_PORT}\n")

	var s sample
	require.NoError(t, Load(path, &s))
	assert.Equal(t, sample{Name: "archive", Port: 7000}, s)
}

func TestLoad_ValidationFails(t *testing.T) {
	path := writeFile(t, "config.yaml", "port: 1\n")

	var s sample
	err := Load(path, &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is empty")
}

func TestLoad_ParseError(t *testing.T) {
	path := writeFile(t, "config.toml", "name = \n")

	var s sample
	require.Error(t, Load(path, &s))
}

func TestLoadOptional_Missing(t *testing.T) {
	s := sample{Name: "default"}
	ok, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "default", s.Name)

	var empty sample
	_, err = LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &empty)
	require.Error(t, err)
}

func TestLoadOptional_Present(t *testing.T) {
	path := writeFile(t, "config.yaml", "name: loaded\n")

	s := sample{Name: "default", Port: 80}
	ok, err := LoadOptional(path, &s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sample{Name: "loaded", Port: 80}, s)
}
