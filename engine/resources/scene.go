package resources

// AddMesh reorders mf by material and appends it. It returns the index
// objects refer to with DataIndex.
func (sf *SceneFile) AddMesh(mf *MeshFile) (uint32, error) {
	if err := ReorderMaterials(mf); err != nil {
		return 0, err
	}
	sf.Meshes = append(sf.Meshes, *mf)
	return uint32(len(sf.Meshes) - 1), nil
}

func (sf *SceneFile) AddObject(o ObjectInstance) uint32 {
	sf.Objects = append(sf.Objects, o)
	return uint32(len(sf.Objects) - 1)
}

func (sf *SceneFile) AddMaterial(name string) uint32 {
	sf.Materials = append(sf.Materials, MeshFileMaterial{Name: name})
	return uint32(len(sf.Materials) - 1)
}

func (sf *SceneFile) SetCollection(c *Collection) {
	sf.Collection = c
}
