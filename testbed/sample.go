package testbed

import (
	"github.com/spaghettifunk/anima-mesh/engine/math"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/resources"
	"github.com/spaghettifunk/anima-mesh/engine/serial"
)

const (
	SampleMeshName     = "Cube"
	SampleUvMap        = "UVMap"
	SampleInflateKey   = "Inflate"
	SampleInflateScale = 1.5
)

var cubePoints = []math.Vec3{
	{X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: -1}, {X: 1, Y: 1, Z: -1}, {X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: -1, Y: 1, Z: 1},
}

// counter clockwise seen from outside: -Z, +Z, -Y, +Y, -X, +X
var cubeFaces = [][4]uint32{
	{0, 3, 2, 1},
	{4, 5, 6, 7},
	{0, 1, 5, 4},
	{3, 7, 6, 2},
	{0, 4, 7, 3},
	{1, 2, 6, 5},
}

/**
 * @brief Builds a cube of six quads. Faces alternate between the materials
 * Paint and Metal, every face maps the full UV square and the Inflate shape
 * key scales the cube by SampleInflateScale.
 */
func SampleCube() (*resources.MeshFile, error) {
	mf := resources.NewMeshFile(SampleMeshName, uint32(len(cubePoints)), 12, uint32(len(cubeFaces)), uint32(4*len(cubeFaces)))

	corners := make([]uint32, 0, mf.CornerCount)
	uvs := make([]math.Vec2, 0, mf.CornerCount)
	slots := make([]uint32, 0, mf.FaceCount)
	for i, f := range cubeFaces {
		corners = append(corners, f[:]...)
		uvs = append(uvs, math.NewVec2(0, 0), math.NewVec2(1, 0), math.NewVec2(1, 1), math.NewVec2(0, 1))
		slots = append(slots, uint32(i%2))
	}
	inflated := make([]math.Vec3, len(cubePoints))
	for i, p := range cubePoints {
		inflated[i] = p.MulScalar(SampleInflateScale)
	}

	if err := addValues(mf, resources.AttributePosition, metadata.AttributeDomainPoint, metadata.AttributeTypeVec3, cubePoints, false); err != nil {
		return nil, err
	}
	if err := addValues(mf, resources.AttributeCornerVert, metadata.AttributeDomainCorner, metadata.AttributeTypeUInt32, corners, false); err != nil {
		return nil, err
	}
	if err := addValues(mf, SampleUvMap, metadata.AttributeDomainCorner, metadata.AttributeTypeVec2, uvs, true); err != nil {
		return nil, err
	}
	if err := addValues(mf, resources.AttributeMaterialIndex, metadata.AttributeDomainFace, metadata.AttributeTypeUInt32, slots, false); err != nil {
		return nil, err
	}

	basis, err := serial.ToBytes(cubePoints)
	if err != nil {
		return nil, err
	}
	if err := mf.AddShapeKey("Basis", "", 1, 0, 1, basis); err != nil {
		return nil, err
	}
	inflate, err := serial.ToBytes(inflated)
	if err != nil {
		return nil, err
	}
	if err := mf.AddShapeKey(SampleInflateKey, "Basis", 0.25, 0, 1, inflate); err != nil {
		return nil, err
	}

	mf.AddMaterial(0)
	mf.AddMaterial(1)
	return mf, nil
}

/**
 * @brief The sample scene: the cube instanced twice, once rotated with euler
 * angles and once with a quaternion, both in the Props collection.
 */
func SampleScene() (*resources.SceneFile, error) {
	sf := &resources.SceneFile{}
	sf.AddMaterial("Paint")
	sf.AddMaterial("Metal")

	cube, err := SampleCube()
	if err != nil {
		return nil, err
	}
	mesh, err := sf.AddMesh(cube)
	if err != nil {
		return nil, err
	}

	props := resources.NewCollection("Props")
	props.SetViewportEnabled(true)
	props.SetRenderEnabled(true)

	euler, err := resources.NewObjectInstance("Cube", mesh, math.NewVec3Zero(), resources.RotationModeXYZ,
		math.NewVec3(0, 0.5, 0), math.Quaternion{}, math.NewVec3One())
	if err != nil {
		return nil, err
	}
	euler.ViewportDisplay.Set(resources.ViewportDisplayName, true)
	props.AddObject(sf.AddObject(euler))

	quat, err := resources.NewObjectInstance("Cube.001", mesh, math.NewVec3(3, 0, 0), resources.RotationModeQuat,
		math.NewVec3Zero(), math.Quaternion{X: 0, Y: 0.38268343, Z: 0, W: 0.9238795}, math.NewVec3(0.5, 0.5, 0.5))
	if err != nil {
		return nil, err
	}
	props.AddObject(sf.AddObject(quat))

	root := resources.NewCollection("Scene Collection")
	root.SetViewLayerEnabled(true)
	root.AddChild(props)
	sf.SetCollection(root)
	return sf, nil
}

func addValues[T any](mf *resources.MeshFile, name string, domain metadata.AttributeDomain, typ metadata.AttributeType, values []T, isUV bool) error {
	buf, err := serial.ToBytes(values)
	if err != nil {
		return err
	}
	return mf.AddAttribute(name, domain, typ, buf, isUV)
}
