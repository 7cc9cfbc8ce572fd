package assets

import "github.com/spaghettifunk/campusmap/engine/renderer/metadata"

// Loader reads one kind of asset file. The asset manager picks the loader
// from the file extension: .obj models, .kmt materials, .toml scenes.
type Loader interface {
	Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
