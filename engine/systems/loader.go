package systems

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/math"
	"github.com/spaghettifunk/anima-mesh/engine/renderer"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/resources"
	"github.com/spaghettifunk/anima-mesh/engine/serial"
)

type LoadedMaterial struct {
	Name string
	/** @brief Index of the material record in the scene buffer. */
	Index uint32
}

/**
 * @brief The device side of a scene file. Meshes line up with the file's
 * mesh list: a mesh without faces is a nil entry, so object data indices
 * stay valid.
 */
type LoadedScene struct {
	scene *SceneData

	ID         uuid.UUID
	Meshes     []*MeshData3D
	Objects    []resources.ObjectInstance
	Materials  []LoadedMaterial
	Collection *resources.Collection
}

func LoadSceneFile(sd *SceneData, path string) (*LoadedScene, error) {
	clock := core.NewClock()
	clock.Start()

	sf, err := resources.LoadSceneFile(path)
	if err != nil {
		core.LogError("failed to load scene file: %s", err)
		return nil, err
	}
	ls, err := LoadScene(sd, sf)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}

	clock.Update()
	core.LogInfo("scene %s loaded from %s in %s (%d meshes, %d objects)", ls.ID, path, clock.Elapsed(), len(ls.Meshes), len(ls.Objects))
	return ls, nil
}

func LoadScene(sd *SceneData, sf *resources.SceneFile) (*LoadedScene, error) {
	ls := &LoadedScene{
		scene:      sd,
		ID:         uuid.New(),
		Meshes:     make([]*MeshData3D, len(sf.Meshes)),
		Objects:    sf.Objects,
		Materials:  make([]LoadedMaterial, 0, len(sf.Materials)),
		Collection: sf.Collection,
	}
	for i := range sf.Meshes {
		mesh, err := loadMesh(sd, &sf.Meshes[i])
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %d (%q)", i, sf.Meshes[i].Name)
		}
		ls.Meshes[i] = mesh
	}
	for _, mat := range sf.Materials {
		index, err := sd.AddMaterial(nil, metadata.UniformMaterial{
			BaseColor:     math.Vec4{X: 1, Y: 1, Z: 1, W: 1},
			Roughness:     0.5,
			AlbedoTexture: metadata.InvalidOffset,
			NormalTexture: metadata.InvalidOffset,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "material %q", mat.Name)
		}
		ls.Materials = append(ls.Materials, LoadedMaterial{Name: mat.Name, Index: index})
	}
	if err := sd.WriteUniform(nil); err != nil {
		return nil, err
	}
	return ls, nil
}

func loadMesh(sd *SceneData, mf *resources.MeshFile) (*MeshData3D, error) {
	if mf.FaceCount == 0 {
		core.LogDebug("mesh %q has no faces, skipping", mf.Name)
		return nil, nil
	}
	if _, err := mf.CornersPerFace(); err != nil {
		return nil, logged(err)
	}
	mesh, err := NewMeshData3D(sd, mf.Name, mf.PointCount, mf.FaceCount, mf.CornerCount)
	if err != nil {
		return nil, err
	}

	pos := mf.FindAttribute(resources.AttributePosition)
	if pos == nil {
		return nil, logged(errors.Wrapf(core.ErrAttributeNotFound, "%q", resources.AttributePosition))
	}
	if len(pos.Buffer) != len(mesh.Position.Buffer) {
		return nil, logged(errors.Wrapf(core.ErrBufferSizeMismatch, "%q: %d bytes, expected %d", pos.Name, len(pos.Buffer), len(mesh.Position.Buffer)))
	}
	copy(mesh.Position.Buffer, pos.Buffer)

	if count := len(pos.Morphs); count > 1 {
		morphs, err := mesh.AddAttributeMorphs(mesh.Position, uint32(count))
		if err != nil {
			return nil, err
		}
		var offset int
		for i, morph := range pos.Morphs {
			morphs.Values[i] = MeshMorph{
				Name:  morph.Name,
				Value: morph.Value,
				Min:   morph.Min,
				Max:   morph.Max,
			}
			if len(morph.Buffer) != len(pos.Buffer) {
				return nil, logged(errors.Wrapf(core.ErrBufferSizeMismatch, "shape key %q: %d bytes, expected %d", morph.Name, len(morph.Buffer), len(pos.Buffer)))
			}
			offset += copy(morphs.Attribute.Buffer[offset:], morph.Buffer)
		}
	}

	cv := mf.FindAttribute(resources.AttributeCornerVert)
	if cv == nil {
		return nil, logged(errors.Wrapf(core.ErrAttributeNotFound, "%q", resources.AttributeCornerVert))
	}
	var indices []uint32
	switch cv.Type {
	case metadata.AttributeTypeUInt16:
		narrow, err := serial.FromBytes[uint16](cv.Buffer)
		if err != nil {
			return nil, logged(err)
		}
		indices = make([]uint32, len(narrow))
		for i, v := range narrow {
			indices[i] = uint32(v)
		}
	case metadata.AttributeTypeUInt32:
		if indices, err = serial.FromBytes[uint32](cv.Buffer); err != nil {
			return nil, logged(err)
		}
	default:
		return nil, logged(errors.Wrapf(core.ErrInvalidAttributeType, "%q holds %s", cv.Name, cv.Type))
	}
	if uint32(len(indices)) != mf.CornerCount {
		return nil, logged(errors.Wrapf(core.ErrBufferSizeMismatch, "%q: %d indices for %d corners", cv.Name, len(indices), mf.CornerCount))
	}
	if err := mesh.SetPointsOfCorners(indices); err != nil {
		return nil, logged(err)
	}

	uvs, err := mf.UvMaps()
	if err != nil {
		return nil, logged(err)
	}
	for _, uv := range uvs {
		if uv.Type != metadata.AttributeTypeVec2F16 || uv.Domain != metadata.AttributeDomainCorner {
			return nil, logged(errors.Wrapf(core.ErrInvalidAttributeType, "uv map %q is %s %s", uv.Name, uv.Domain, uv.Type))
		}
		uvMap, err := mesh.AddUvMap(uv.Name)
		if err != nil {
			return nil, err
		}
		if err := setBytes(uvMap.Uv, uv.Buffer); err != nil {
			return nil, logged(err)
		}
	}

	mesh.MaterialRanges = make([]MaterialRange, len(mf.Materials))
	for i, r := range mf.Materials {
		mesh.MaterialRanges[i] = MaterialRange{Offset: r.Offset, Count: r.Count}
	}
	return mesh, nil
}

/**
 * @brief Uploads every mesh and runs the shape key, normal and tangent
 * kernels over them, waiting between stages.
 */
func (ls *LoadedScene) Upload(frame renderer.Frame) error {
	stages := []struct {
		name string
		run  func(*MeshData3D, renderer.Frame) error
	}{
		{"write", (*MeshData3D).Write},
		{"morphs", (*MeshData3D).CalcMorphs},
		{"face normals", (*MeshData3D).CalcFaceNormals},
		{"point normals", (*MeshData3D).CalcPointNormals},
		{"tangents", (*MeshData3D).CalcUvTangents},
	}
	return ls.scene.device.ExecuteSingleTimeCommands(frame, func(f renderer.Frame) error {
		for _, stage := range stages {
			for _, mesh := range ls.Meshes {
				if mesh == nil {
					continue
				}
				if err := stage.run(mesh, f); err != nil {
					return errors.Wrapf(err, "%s", stage.name)
				}
			}
			if err := f.WaitForCommands(); err != nil {
				return errors.Wrapf(err, "%s", stage.name)
			}
		}
		return nil
	})
}
