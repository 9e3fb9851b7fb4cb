package systems

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
)

/** @brief A named attribute living in the shared attribute buffer. */
type MeshAttribute struct {
	mesh *MeshData2

	Name   string
	Domain metadata.AttributeDomain
	Type   metadata.AttributeType
	/** @brief Element offset into the attribute buffer, in units of ElementSize. */
	IndexOffset uint32
	ElementSize uint32
	Count       uint32
	/** @brief Host copy of the contents, uploaded by Write. */
	Buffer []byte
	Morphs *MeshAttributeMorphs
}

func (at *MeshAttribute) ByteOffset() uint64 {
	return uint64(at.IndexOffset) * uint64(at.ElementSize)
}

func (at *MeshAttribute) Mesh() *MeshData2 {
	return at.mesh
}

type MeshMorph struct {
	Name  string
	Value float32
	Min   float32
	Max   float32
}

/**
 * @brief Shape key storage of an attribute. Attribute holds one
 * domain sized block per shape followed by a spare block, the weights are
 * ShapeCount floats at ValuesIndexOffset.
 */
type MeshAttributeMorphs struct {
	Attribute         *MeshAttribute
	ValuesIndexOffset uint32
	Values            []MeshMorph
}

/** @brief Material range in faces, after reordering. */
type MaterialRange struct {
	Offset uint32
	Count  uint32
}

/**
 * @brief An unordered catalog of named attributes of one mesh. Attribute data
 * is allocated from the owning scene's attribute buffer and never freed.
 */
type MeshData2 struct {
	scene *SceneData

	pointCount  uint32
	faceCount   uint32
	cornerCount uint32

	attributes []*MeshAttribute
	byName     map[string]*MeshAttribute

	MaterialRanges []MaterialRange
}

func NewMeshData2(sd *SceneData, pointCount, faceCount, cornerCount uint32) (*MeshData2, error) {
	if faceCount != 0 && cornerCount%faceCount != 0 {
		return nil, logged(errors.Wrapf(core.ErrNonUniformTopology, "%d corners, %d faces", cornerCount, faceCount))
	}
	return &MeshData2{
		scene:       sd,
		pointCount:  pointCount,
		faceCount:   faceCount,
		cornerCount: cornerCount,
		byName:      make(map[string]*MeshAttribute),
	}, nil
}

func (m *MeshData2) Scene() *SceneData   { return m.scene }
func (m *MeshData2) PointCount() uint32  { return m.pointCount }
func (m *MeshData2) FaceCount() uint32   { return m.faceCount }
func (m *MeshData2) CornerCount() uint32 { return m.cornerCount }

func (m *MeshData2) CornerPerFace() uint32 {
	if m.faceCount == 0 {
		return 0
	}
	return m.cornerCount / m.faceCount
}

/** @brief Attributes in creation order. */
func (m *MeshData2) Attributes() []*MeshAttribute {
	return m.attributes
}

func (m *MeshData2) FindAttribute(name string) *MeshAttribute {
	if name == "" {
		return nil
	}
	return m.byName[name]
}

func (m *MeshData2) domainCount(domain metadata.AttributeDomain) (uint32, error) {
	switch domain {
	case metadata.AttributeDomainPoint:
		return m.pointCount, nil
	case metadata.AttributeDomainFace:
		return m.faceCount, nil
	case metadata.AttributeDomainCorner:
		return m.cornerCount, nil
	}
	return 0, errors.Wrapf(core.ErrInvalidAttributeDomain, "%s attributes are not stored on the device", domain)
}

/**
 * @brief Adds an attribute sized for its domain plus extra elements. The
 * name must be unique within the mesh.
 */
func (m *MeshData2) AddAttribute(name string, domain metadata.AttributeDomain, typ metadata.AttributeType, extra uint32) (*MeshAttribute, error) {
	count, err := m.domainCount(domain)
	if err != nil {
		return nil, logged(err)
	}
	return m.addAttribute(name, domain, typ, count+extra)
}

func (m *MeshData2) addAttribute(name string, domain metadata.AttributeDomain, typ metadata.AttributeType, count uint32) (*MeshAttribute, error) {
	if name != "" && m.byName[name] != nil {
		return nil, logged(errors.Wrapf(core.ErrAttributeExists, "%q", name))
	}
	size, err := metadata.ByteSizeOf(typ)
	if err != nil {
		return nil, logged(err)
	}
	offset, err := m.scene.attributeAllocator.Allocate(size, count)
	if err != nil {
		return nil, logged(errors.Wrapf(err, "attribute %q", name))
	}
	at := &MeshAttribute{
		mesh:        m,
		Name:        name,
		Domain:      domain,
		Type:        typ,
		IndexOffset: offset,
		ElementSize: size,
		Count:       count,
		Buffer:      make([]byte, uint64(size)*uint64(count)),
	}
	m.attributes = append(m.attributes, at)
	if name != "" {
		m.byName[name] = at
	}
	return at, nil
}

/**
 * @brief Gives at room for shapeCount shape keys. The first weight defaults
 * to 1, every other weight to 0.
 */
func (m *MeshData2) AddAttributeMorphs(at *MeshAttribute, shapeCount uint32) (*MeshAttributeMorphs, error) {
	if at == nil || at.mesh != m {
		return nil, logged(errors.WithStack(core.ErrForeignAttribute))
	}
	if at.Morphs != nil {
		return nil, logged(errors.Wrapf(core.ErrMorphsExist, "%q", at.Name))
	}
	count, err := m.domainCount(at.Domain)
	if err != nil {
		return nil, logged(err)
	}
	deltas, err := m.AddAttribute("MorphsOf"+at.Name, at.Domain, at.Type, count*shapeCount)
	if err != nil {
		return nil, err
	}
	valuesOffset, err := m.scene.attributeAllocator.Allocate(4, shapeCount)
	if err != nil {
		return nil, logged(errors.Wrapf(err, "morph weights of %q", at.Name))
	}
	values := make([]MeshMorph, shapeCount)
	for i := range values {
		values[i] = MeshMorph{Max: 1}
	}
	if len(values) > 0 {
		values[0].Value = 1
	}
	at.Morphs = &MeshAttributeMorphs{
		Attribute:         deltas,
		ValuesIndexOffset: valuesOffset,
		Values:            values,
	}
	return at.Morphs, nil
}
