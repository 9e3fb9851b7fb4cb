package loaders

import (
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/resources"
)

// MeshLoader reads .kmf files. Data is a *resources.MeshFile.
type MeshLoader struct{}

func (ml *MeshLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	mf, err := resources.LoadMeshFile(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     mf.Name,
		Type:     assetType,
		FullPath: path,
		DataSize: meshDataSize(mf),
		Data:     mf,
	}, nil
}

func (ml *MeshLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

// SceneLoader reads .ksc files. Data is a *resources.SceneFile.
type SceneLoader struct{}

func (sl *SceneLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	sf, err := resources.LoadSceneFile(path)
	if err != nil {
		return nil, err
	}
	var size uint64
	for i := range sf.Meshes {
		size += meshDataSize(&sf.Meshes[i])
	}
	return &metadata.Resource{
		Name:     resourceName(path, params),
		Type:     assetType,
		FullPath: path,
		DataSize: size,
		Data:     sf,
	}, nil
}

func (sl *SceneLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

// meshDataSize is the number of attribute and morph bytes a mesh carries.
func meshDataSize(mf *resources.MeshFile) uint64 {
	var size uint64
	for _, at := range mf.Attributes {
		size += uint64(len(at.Buffer))
		for _, m := range at.Morphs {
			size += uint64(len(m.Buffer))
		}
	}
	return size
}
