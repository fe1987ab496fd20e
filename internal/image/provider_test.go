package image

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("not a real disk"), 0o644))
	return path
}

func TestLookup_FindsByExtension(t *testing.T) {
	dir := t.TempDir()
	want := writeImage(t, dir, "ie6.qcow2")

	p := NewProvider(dir, nil)
	assert.Equal(t, want, p.Lookup("ie6"))
}

func TestLookup_PrefersQcow2(t *testing.T) {
	dir := t.TempDir()
	want := writeImage(t, dir, "ie8.qcow2")
	writeImage(t, dir, "ie8.img")

	p := NewProvider(dir, nil)
	assert.Equal(t, want, p.Lookup("ie8"))
}

func TestLookup_MissingIsEmpty(t *testing.T) {
	p := NewProvider(t.TempDir(), nil)
	assert.Equal(t, "", p.Lookup("ie6"))
}

func TestLookup_EmptyFileUnusable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ie7.img"), nil, 0o644))

	p := NewProvider(dir, nil)
	assert.Equal(t, "", p.Lookup("ie7"))
}

func TestLookup_OverrideWins(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "ie6.qcow2")
	override := writeImage(t, dir, "custom.vdi")

	p := NewProvider(dir, map[string]string{"ie6": override})
	assert.Equal(t, override, p.Lookup("ie6"))
}

func TestLookup_BrokenOverrideDoesNotFallBack(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "ie6.qcow2")

	p := NewProvider(dir, map[string]string{"ie6": filepath.Join(dir, "gone.qcow2")})
	assert.Equal(t, "", p.Lookup("ie6"))
}
