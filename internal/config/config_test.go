package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qalam-lang/qalam/internal/config"
)

func TestParseDialect(t *testing.T) {
	for _, name := range []string{"latin", "en", ""} {
		d, err := config.ParseDialect(name)
		require.NoError(t, err)
		assert.Equal(t, config.Latin, d)
	}
	for _, name := range []string{"arabic", "ar"} {
		d, err := config.ParseDialect(name)
		require.NoError(t, err)
		assert.Equal(t, config.Arabic, d)
	}
	_, err := config.ParseDialect("klingon")
	assert.Error(t, err)
}

func TestLoadMissingFileIsZero(t *testing.T) {
	f, err := config.Load(filepath.Join(t.TempDir(), config.FileName))
	require.NoError(t, err)
	assert.Equal(t, &config.File{}, f)
}

func TestLoadProjectFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
dialect: arabic
extensions:
  lists: true
  lambdas: false
`), 0o644))

	f, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "arabic", f.Dialect)
	assert.True(t, f.Extensions.Lists)
	assert.False(t, f.Extensions.Lambdas)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte("dialect: [unclosed"), 0o644))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestHasSourceExt(t *testing.T) {
	assert.True(t, config.HasSourceExt("prog.qlm"))
	assert.True(t, config.HasSourceExt("prog.qalam"))
	assert.False(t, config.HasSourceExt("prog.txt"))
}
