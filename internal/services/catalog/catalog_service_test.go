package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func writeDef(t *testing.T, dir, file, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

func TestNewService_LoadsDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "vcctl.toml", `
name = "vcctl-hydration"
binary_path = "/opt/vcctl/bin/disrealnew"
protocol = "structured"
description = "Main hydration solver"
default_max_duration_hint_hours = 168.0
`)
	writeDef(t, dir, "legacy.toml", `
name = "vcctl-legacy"
binary_path = "/opt/vcctl/bin/disrealold"
protocol = "legacy"
`)

	s, err := NewService(dir, arbor.NewLogger())
	require.NoError(t, err)

	def, err := s.Get("vcctl-hydration")
	require.NoError(t, err)
	assert.Equal(t, "/opt/vcctl/bin/disrealnew", def.BinaryPath)
	assert.Equal(t, 168.0, def.DefaultMaxDurationHintHours)

	assert.Len(t, s.List(), 2)
}

func TestNewService_SkipsInvalidDefinitions(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "good.toml", `
name = "good"
binary_path = "/bin/solver"
protocol = "structured"
`)
	// Missing binary_path and a protocol outside the allowed set
	writeDef(t, dir, "bad.toml", `
name = "bad"
protocol = "telepathy"
`)
	writeDef(t, dir, "broken.toml", `name = [unclosed`)

	s, err := NewService(dir, arbor.NewLogger())
	require.NoError(t, err)

	assert.Len(t, s.List(), 1)
	_, err = s.Get("bad")
	assert.Error(t, err)
}

func TestNewService_MissingDirectoryIsEmptyCatalog(t *testing.T) {
	s, err := NewService(filepath.Join(t.TempDir(), "nope"), arbor.NewLogger())
	require.NoError(t, err)
	assert.Empty(t, s.List())
}

func TestValidateParamFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mix.prm")
	require.NoError(t, os.WriteFile(path, []byte("w/c 0.4\n"), 0o644))

	assert.NoError(t, ValidateParamFile(path))
	assert.Error(t, ValidateParamFile(filepath.Join(dir, "missing.prm")))

	empty := filepath.Join(dir, "empty.prm")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	assert.Error(t, ValidateParamFile(empty))
}
