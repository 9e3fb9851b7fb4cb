package loaders

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/math"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/resources"
	"github.com/spaghettifunk/anima-mesh/engine/serial"
)

const (
	// GLTFUvMapName names the UV map imported from TEXCOORD_0.
	GLTFUvMapName = "UVMap"
	// GLTFBasisName names the shape key holding the undeformed positions.
	GLTFBasisName = "Basis"
	// GLTFDefaultMaterial is used by primitives without a material.
	GLTFDefaultMaterial = "default"
)

var ErrInvalidGLTF = errors.New("invalid glTF document")

// GLTFLoader imports .gltf and .glb files. Data is a *resources.SceneFile.
type GLTFLoader struct{}

func (gl *GLTFLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	sf, err := ImportGLTF(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     resourceName(path, params),
		Type:     assetType,
		FullPath: path,
		Data:     sf,
	}, nil
}

func (gl *GLTFLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

func ImportGLTF(path string) (*resources.SceneFile, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	base := filepath.Base(path)
	return ConvertDocument(doc, strings.TrimSuffix(base, filepath.Ext(base)))
}

/**
 * @brief Converts a glTF document into a scene file. Every glTF mesh becomes
 * one mesh file, its triangle primitives merged: vertices are points, indices
 * are corners and triangles are faces. Nodes of the default scene holding a
 * mesh become objects with their world transform, all in the root collection.
 */
func ConvertDocument(doc *gltf.Document, name string) (*resources.SceneFile, error) {
	sf := &resources.SceneFile{}

	materials := newMaterialTable(doc, sf)
	for i, m := range doc.Meshes {
		mf, err := convertMesh(doc, m, i, materials)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %d", i)
		}
		if _, err := sf.AddMesh(mf); err != nil {
			return nil, errors.Wrapf(err, "mesh %q", mf.Name)
		}
	}

	root := resources.NewCollection(name)
	root.SetViewLayerEnabled(true)
	root.SetSelectionEnabled(true)
	root.SetViewportEnabled(true)
	root.SetRenderEnabled(true)

	visited := make(map[uint32]bool, len(doc.Nodes))
	var visit func(idx uint32, parent mgl32.Mat4) error
	visit = func(idx uint32, parent mgl32.Mat4) error {
		if int(idx) >= len(doc.Nodes) {
			return errors.Wrapf(ErrInvalidGLTF, "node %d of %d", idx, len(doc.Nodes))
		}
		if visited[idx] {
			return nil
		}
		visited[idx] = true

		node := doc.Nodes[idx]
		world := parent.Mul4(localTransform(node))
		if node.Mesh != nil {
			if int(*node.Mesh) >= len(sf.Meshes) {
				return errors.Wrapf(ErrInvalidGLTF, "node %d: mesh %d of %d", idx, *node.Mesh, len(sf.Meshes))
			}
			o, err := newObject(node, idx, *node.Mesh, sf, world)
			if err != nil {
				return err
			}
			root.AddObject(sf.AddObject(o))
		}
		for _, child := range node.Children {
			if err := visit(child, world); err != nil {
				return err
			}
		}
		return nil
	}
	for _, idx := range rootNodes(doc) {
		if err := visit(idx, mgl32.Ident4()); err != nil {
			return nil, err
		}
	}
	sf.SetCollection(root)

	core.LogInfo("imported glTF %s: %d meshes, %d objects, %d materials", name, len(sf.Meshes), len(sf.Objects), len(sf.Materials))
	return sf, nil
}

type materialTable struct {
	scene    *resources.SceneFile
	ids      []uint32
	fallback *uint32
}

func newMaterialTable(doc *gltf.Document, sf *resources.SceneFile) *materialTable {
	t := &materialTable{scene: sf, ids: make([]uint32, len(doc.Materials))}
	for i, m := range doc.Materials {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("Material.%03d", i)
		}
		t.ids[i] = sf.AddMaterial(name)
	}
	return t
}

// sceneID maps a primitive material to a scene material, adding the default
// material the first time a primitive has none.
func (t *materialTable) sceneID(material *uint32) (uint32, error) {
	if material != nil {
		if int(*material) >= len(t.ids) {
			return 0, errors.Wrapf(ErrInvalidGLTF, "material %d of %d", *material, len(t.ids))
		}
		return t.ids[*material], nil
	}
	if t.fallback == nil {
		id := t.scene.AddMaterial(GLTFDefaultMaterial)
		t.fallback = &id
	}
	return *t.fallback, nil
}

type meshBuilder struct {
	positions []math.Vec3
	uvs       []math.Vec2
	hasUV     bool
	corners   []uint32
	faceSlots []uint32
	slots     []uint32
	targets   [][]math.Vec3
}

// slot returns the mesh local material slot of a scene material.
func (b *meshBuilder) slot(sceneID uint32) uint32 {
	for i, id := range b.slots {
		if id == sceneID {
			return uint32(i)
		}
	}
	b.slots = append(b.slots, sceneID)
	return uint32(len(b.slots) - 1)
}

func convertMesh(doc *gltf.Document, m *gltf.Mesh, index int, materials *materialTable) (*resources.MeshFile, error) {
	name := m.Name
	if name == "" {
		name = fmt.Sprintf("Mesh.%03d", index)
	}

	b := &meshBuilder{}
	targetCount := -1
	for pi, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			core.LogWarn("mesh %q: skipping primitive %d, only triangle lists are imported", name, pi)
			continue
		}
		if err := b.addPrimitive(doc, prim, materials); err != nil {
			return nil, errors.Wrapf(err, "mesh %q primitive %d", name, pi)
		}
		if targetCount == -1 {
			targetCount = len(prim.Targets)
		} else if targetCount != len(prim.Targets) {
			targetCount = 0
		}
	}

	points := uint32(len(b.positions))
	corners := uint32(len(b.corners))
	faces := corners / 3
	mf := resources.NewMeshFile(name, points, countEdges(b.corners), faces, corners)
	if faces == 0 {
		return mf, nil
	}

	if err := addValues(mf, resources.AttributePosition, metadata.AttributeDomainPoint, metadata.AttributeTypeVec3, b.positions, false); err != nil {
		return nil, err
	}
	if err := addValues(mf, resources.AttributeCornerVert, metadata.AttributeDomainCorner, metadata.AttributeTypeUInt32, b.corners, false); err != nil {
		return nil, err
	}
	if err := addValues(mf, resources.AttributeMaterialIndex, metadata.AttributeDomainFace, metadata.AttributeTypeUInt32, b.faceSlots, false); err != nil {
		return nil, err
	}
	if b.hasUV {
		uvs := make([]math.Vec2, corners)
		for i, p := range b.corners {
			uvs[i] = b.uvs[p]
		}
		if err := addValues(mf, GLTFUvMapName, metadata.AttributeDomainCorner, metadata.AttributeTypeVec2, uvs, true); err != nil {
			return nil, err
		}
	}
	for _, id := range b.slots {
		mf.AddMaterial(id)
	}

	if targetCount > 0 && len(b.targets) == targetCount {
		if err := addShapeKeys(mf, m, b); err != nil {
			return nil, err
		}
	} else if targetCount != -1 && len(m.Primitives) > 0 && len(m.Primitives[0].Targets) > 0 {
		core.LogWarn("mesh %q: primitives disagree on morph targets, shape keys skipped", name)
	}
	return mf, nil
}

func (b *meshBuilder) addPrimitive(doc *gltf.Document, prim *gltf.Primitive, materials *materialTable) error {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return errors.Wrapf(ErrInvalidGLTF, "primitive has no %s", gltf.POSITION)
	}
	acr, err := accessor(doc, posIdx)
	if err != nil {
		return err
	}
	positions, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return errors.Wrap(err, "read positions")
	}

	var indices []uint32
	if prim.Indices != nil {
		acr, err := accessor(doc, *prim.Indices)
		if err != nil {
			return err
		}
		if indices, err = modeler.ReadIndices(doc, acr, nil); err != nil {
			return errors.Wrap(err, "read indices")
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return errors.Wrapf(ErrInvalidGLTF, "%d indices do not form triangles", len(indices))
	}

	base := uint32(len(b.positions))
	for _, idx := range indices {
		if int(idx) >= len(positions) {
			return errors.Wrapf(ErrInvalidGLTF, "index %d of %d vertices", idx, len(positions))
		}
		b.corners = append(b.corners, base+idx)
	}
	for _, p := range positions {
		b.positions = append(b.positions, math.Vec3{X: p[0], Y: p[1], Z: p[2]})
	}

	uvs := make([]math.Vec2, len(positions))
	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		acr, err := accessor(doc, uvIdx)
		if err != nil {
			return err
		}
		read, err := modeler.ReadTextureCoord(doc, acr, nil)
		if err != nil {
			return errors.Wrap(err, "read texture coordinates")
		}
		// glTF texture coordinates have their origin at the top left.
		for i := range uvs {
			if i < len(read) {
				uvs[i] = math.Vec2{X: read[i][0], Y: 1 - read[i][1]}
			}
		}
		b.hasUV = true
	}
	b.uvs = append(b.uvs, uvs...)

	sceneID, err := materials.sceneID(prim.Material)
	if err != nil {
		return err
	}
	slot := b.slot(sceneID)
	for i := 0; i < len(indices)/3; i++ {
		b.faceSlots = append(b.faceSlots, slot)
	}

	if len(prim.Targets) == 0 {
		return nil
	}
	if b.targets == nil {
		b.targets = make([][]math.Vec3, len(prim.Targets))
	}
	if len(b.targets) != len(prim.Targets) {
		return nil
	}
	for ti, target := range prim.Targets {
		deltas := make([]math.Vec3, len(positions))
		if idx, ok := target[gltf.POSITION]; ok {
			acr, err := accessor(doc, idx)
			if err != nil {
				return err
			}
			read, err := modeler.ReadPosition(doc, acr, nil)
			if err != nil {
				return errors.Wrapf(err, "read morph target %d", ti)
			}
			for i := range deltas {
				if i < len(read) {
					deltas[i] = math.Vec3{X: read[i][0], Y: read[i][1], Z: read[i][2]}
				}
			}
		}
		b.targets[ti] = append(b.targets[ti], deltas...)
	}
	return nil
}

// addShapeKeys stores the basis and one absolute shape key per morph target.
func addShapeKeys(mf *resources.MeshFile, m *gltf.Mesh, b *meshBuilder) error {
	buf, err := serial.ToBytes(b.positions)
	if err != nil {
		return err
	}
	if err := mf.AddShapeKey(GLTFBasisName, "", 1, 0, 1, buf); err != nil {
		return err
	}

	names := targetNames(m.Extras)
	for ti, deltas := range b.targets {
		if len(deltas) != len(b.positions) {
			return errors.Wrapf(ErrInvalidGLTF, "morph target %d has %d of %d vertices", ti, len(deltas), len(b.positions))
		}
		shape := make([]math.Vec3, len(deltas))
		for i, d := range deltas {
			shape[i] = b.positions[i].Add(d)
		}
		buf, err := serial.ToBytes(shape)
		if err != nil {
			return err
		}

		name := fmt.Sprintf("Key %d", ti+1)
		if ti < len(names) && names[ti] != "" {
			name = names[ti]
		}
		var value float32
		if ti < len(m.Weights) {
			value = m.Weights[ti]
		}
		if err := mf.AddShapeKey(name, GLTFBasisName, value, 0, 1, buf); err != nil {
			return err
		}
	}
	return nil
}

// targetNames reads the targetNames extension most exporters put in mesh extras.
func targetNames(extras interface{}) []string {
	if extras == nil {
		return nil
	}
	raw, ok := extras.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(extras); err != nil {
			return nil
		}
	}
	var e struct {
		TargetNames []string `json:"targetNames"`
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil
	}
	return e.TargetNames
}

func addValues[T any](mf *resources.MeshFile, name string, domain metadata.AttributeDomain, typ metadata.AttributeType, values []T, isUV bool) error {
	buf, err := serial.ToBytes(values)
	if err != nil {
		return err
	}
	return mf.AddAttribute(name, domain, typ, buf, isUV)
}

func accessor(doc *gltf.Document, idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(doc.Accessors) {
		return nil, errors.Wrapf(ErrInvalidGLTF, "accessor %d of %d", idx, len(doc.Accessors))
	}
	return doc.Accessors[idx], nil
}

// countEdges counts the distinct undirected edges of a triangle list.
func countEdges(corners []uint32) uint32 {
	type edge struct{ a, b uint32 }
	edges := make(map[edge]struct{}, len(corners))
	for f := 0; f+2 < len(corners); f += 3 {
		for i := 0; i < 3; i++ {
			a, b := corners[f+i], corners[f+(i+1)%3]
			if a > b {
				a, b = b, a
			}
			edges[edge{a, b}] = struct{}{}
		}
	}
	return uint32(len(edges))
}

// rootNodes returns the nodes of the default scene. Documents without scenes
// use every node nothing else lists as a child.
func rootNodes(doc *gltf.Document) []uint32 {
	if len(doc.Scenes) > 0 {
		scene := uint32(0)
		if doc.Scene != nil && int(*doc.Scene) < len(doc.Scenes) {
			scene = *doc.Scene
		}
		return doc.Scenes[scene].Nodes
	}
	child := make(map[uint32]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			child[c] = true
		}
	}
	var roots []uint32
	for i := range doc.Nodes {
		if !child[uint32(i)] {
			roots = append(roots, uint32(i))
		}
	}
	return roots
}

func localTransform(node *gltf.Node) mgl32.Mat4 {
	m := mgl32.Mat4(node.Matrix)
	if m != (mgl32.Mat4{}) && m != mgl32.Ident4() {
		return m
	}
	t, r, s := nodeTRS(node)
	return mgl32.Translate3D(t[0], t[1], t[2]).Mul4(r.Mat4()).Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// nodeTRS returns the node's components, treating zero rotation and scale
// as unset.
func nodeTRS(node *gltf.Node) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	t := mgl32.Vec3(node.Translation)
	r := mgl32.QuatIdent()
	if node.Rotation != ([4]float32{}) {
		r = mgl32.Quat{W: node.Rotation[3], V: mgl32.Vec3{node.Rotation[0], node.Rotation[1], node.Rotation[2]}}
	}
	s := mgl32.Vec3{1, 1, 1}
	if node.Scale != ([3]float32{}) {
		s = mgl32.Vec3(node.Scale)
	}
	return t, r, s
}

func newObject(node *gltf.Node, idx, mesh uint32, sf *resources.SceneFile, world mgl32.Mat4) (resources.ObjectInstance, error) {
	name := node.Name
	if name == "" {
		name = sf.Meshes[mesh].Name
	}
	if name == "" {
		name = fmt.Sprintf("Object.%03d", idx)
	}

	t := world.Col(3).Vec3()
	s := mgl32.Vec3{world.Col(0).Vec3().Len(), world.Col(1).Vec3().Len(), world.Col(2).Vec3().Len()}
	rot := world
	for c := 0; c < 3; c++ {
		if s[c] != 0 {
			rot.SetCol(c, world.Col(c).Mul(1/s[c]))
		}
	}
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	q := mgl32.Mat4ToQuat(rot).Normalize()

	return resources.NewObjectInstance(
		name,
		mesh,
		math.Vec3{X: t[0], Y: t[1], Z: t[2]},
		resources.RotationModeQuat,
		math.Vec3{},
		math.Quaternion{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W},
		math.Vec3{X: s[0], Y: s[1], Z: s[2]},
	)
}
