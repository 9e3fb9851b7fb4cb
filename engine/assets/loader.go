package assets

import "github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"

type Loader interface {
	Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) // Data holds the decoded asset, its type depends on the loader
	Unload(*metadata.Resource) error
}
