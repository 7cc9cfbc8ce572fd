package assets

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
	"github.com/spaghettifunk/campusmap/engine/scene"
)

func init() {
	core.SetLogOutput(io.Discard)
}

const quadOBJ = "v 0 0 0\nv 1 0 0\nv 1 1 0\nf 1 2 3\n"

func newManager(t *testing.T) (*AssetManager, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "quad.obj"), []byte(quadOBJ), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basic.toml"), []byte("name = \"basic\"\n"), 0o644))

	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	t.Cleanup(func() { _ = am.Shutdown() })
	return am, dir
}

func TestAssetManagerIndexesAndLoads(t *testing.T) {
	am, _ := newManager(t)
	assert.Equal(t, 2, am.Count())
	assert.True(t, am.Has("models/quad.obj"))
	assert.False(t, am.Has("notes.txt"))

	res, err := am.LoadAsset("models/quad.obj", metadata.ResourceTypeModel, nil)
	require.NoError(t, err)
	assert.Equal(t, "models/quad.obj", res.Name)
	mesh, ok := res.Data.(*metadata.Mesh)
	require.True(t, ok)
	assert.Equal(t, 3, mesh.VertexCount())
	assert.NoError(t, am.UnloadAsset(res))

	res, err = am.LoadAsset("basic.toml", metadata.ResourceTypeScene, nil)
	require.NoError(t, err)
	assert.Equal(t, "basic", res.Data.(*scene.Config).Name)

	_, err = am.LoadAsset("models/quad.obj", metadata.ResourceTypeMaterial, nil)
	assert.Error(t, err)
	_, err = am.LoadAsset("models/missing.obj", metadata.ResourceTypeModel, nil)
	assert.ErrorIs(t, err, core.ErrAssetNotFound)
}

func TestAssetManagerWatchesChanges(t *testing.T) {
	am, dir := newManager(t)

	var (
		mu      sync.Mutex
		changes []AssetChange
	)
	am.OnChange(func(c AssetChange) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})
	seen := func(want AssetChange) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			for _, c := range changes {
				if c == want {
					return true
				}
			}
			return false
		}
	}

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "materials"), 0o755))
	// Give the watcher a moment to pick up the new directory.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "materials", "bark.kmt"), []byte("name = bark\ncolor = #ccaf7c\n"), 0o644)
		return am.Has("materials/bark.kmt")
	}, 5*time.Second, 50*time.Millisecond)
	require.Eventually(t, seen(AssetChange{Name: "materials/bark.kmt", Type: metadata.ResourceTypeMaterial}), 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "models", "quad.obj")))
	require.Eventually(t, seen(AssetChange{Name: "models/quad.obj", Type: metadata.ResourceTypeModel, Removed: true}), 5*time.Second, 20*time.Millisecond)
	assert.False(t, am.Has("models/quad.obj"))
}

func TestAssetManagerMissingDirectory(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(filepath.Join(t.TempDir(), "nope")))
	assert.Equal(t, 0, am.Count())
	assert.NoError(t, am.Shutdown())
	assert.NoError(t, am.Shutdown())
}
