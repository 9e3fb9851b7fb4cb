package systems

import (
	gomath "math"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/math"
	"github.com/spaghettifunk/anima-mesh/engine/renderer"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/serial"
)

/** @brief Names of the attributes every MeshData3D carries. */
const (
	AttributePointOfCorner = "PointOfCorner"
	AttributeNormalOfFace  = "NormalOfFace"
	AttributePosition      = "Position"
	AttributeNormal        = "Normal"
	AttributeFaceList      = "FaceList"
	AttributeFaceIndex     = "FaceIndex"
)

/** @brief A UV map and the tangents derived from it. */
type UvMap struct {
	Uv      *MeshAttribute
	Tangent *MeshAttribute
}

/**
 * @brief A renderable mesh. Besides the catalog it keeps a mesh record in the
 * scene buffer that mirrors the offsets of its attributes, so the compute
 * kernels only need the mesh index.
 */
type MeshData3D struct {
	*MeshData2

	Name      string
	MeshIndex uint32
	Uniform   metadata.UniformMesh

	PointOfCorner *MeshAttribute
	NormalOfFace  *MeshAttribute
	Position      *MeshAttribute
	Normal        *MeshAttribute
	FaceList      *MeshAttribute

	faceIndices *MeshAttribute
	uvMaps      []UvMap
}

func NewMeshData3D(sd *SceneData, name string, pointCount, faceCount, cornerCount uint32) (*MeshData3D, error) {
	base, err := NewMeshData2(sd, pointCount, faceCount, cornerCount)
	if err != nil {
		return nil, err
	}
	meshIndex, err := sd.allocateMesh()
	if err != nil {
		return nil, logged(errors.Wrapf(err, "mesh %q", name))
	}
	m := &MeshData3D{
		MeshData2: base,
		Name:      name,
		MeshIndex: meshIndex,
	}

	pointIndexType := metadata.AttributeTypeUInt16
	if pointCount > gomath.MaxUint16 {
		pointIndexType = metadata.AttributeTypeUInt32
	}
	attributes := []struct {
		out    **MeshAttribute
		name   string
		domain metadata.AttributeDomain
		typ    metadata.AttributeType
		extra  uint32
	}{
		{&m.PointOfCorner, AttributePointOfCorner, metadata.AttributeDomainCorner, pointIndexType, 0},
		{&m.NormalOfFace, AttributeNormalOfFace, metadata.AttributeDomainFace, metadata.AttributeTypeVec3F16, 0},
		{&m.Position, AttributePosition, metadata.AttributeDomainPoint, metadata.AttributeTypeVec3, 0},
		{&m.Normal, AttributeNormal, metadata.AttributeDomainPoint, metadata.AttributeTypeVec3F16, 0},
		// one more entry holds the total
		{&m.FaceList, AttributeFaceList, metadata.AttributeDomainPoint, metadata.AttributeTypeUInt32, 1},
	}
	for _, a := range attributes {
		if *a.out, err = m.AddAttribute(a.name, a.domain, a.typ, a.extra); err != nil {
			return nil, err
		}
	}

	m.Uniform = metadata.UniformMesh{
		PointCount:             pointCount,
		FaceCount:              faceCount,
		CornerCount:            cornerCount,
		PointOfCornerOffset:    m.PointOfCorner.IndexOffset,
		PositionOffset:         m.Position.IndexOffset,
		NormalOffset:           m.Normal.IndexOffset,
		NormalOfFaceOffset:     m.NormalOfFace.IndexOffset,
		FaceOfPointOffset:      m.FaceList.IndexOffset,
		FaceIndexOfPointOffset: metadata.InvalidOffset,
		UvOffset:               metadata.InvalidOffset,
		TangentOffset:          metadata.InvalidOffset,
	}
	if pointIndexType == metadata.AttributeTypeUInt32 {
		m.Uniform.UseU32Indices |= metadata.UseU32PointIndices
	}
	if err := m.WriteUniform(nil); err != nil {
		return nil, logged(err)
	}
	return m, nil
}

func (m *MeshData3D) UvMaps() []UvMap {
	return m.uvMaps
}

/**
 * @brief Adds a corner UV map named name and its tangents, named
 * "TangentOf"+name. The first map becomes the one the mesh record points at.
 */
func (m *MeshData3D) AddUvMap(name string) (*UvMap, error) {
	uv, err := m.AddAttribute(name, metadata.AttributeDomainCorner, metadata.AttributeTypeVec2F16, 0)
	if err != nil {
		return nil, err
	}
	tangent, err := m.AddAttribute("TangentOf"+name, metadata.AttributeDomainCorner, metadata.AttributeTypeVec3F16, 0)
	if err != nil {
		return nil, err
	}
	if len(m.uvMaps) == 0 {
		m.Uniform.UvOffset = uv.IndexOffset
		m.Uniform.TangentOffset = tangent.IndexOffset
	}
	m.uvMaps = append(m.uvMaps, UvMap{Uv: uv, Tangent: tangent})
	return &m.uvMaps[len(m.uvMaps)-1], nil
}

/**
 * @brief Returns the faces around every point, building them on first use.
 * FaceList holds, per point, the offset of its first entry in FaceIndex,
 * followed by the total, so the faces of point p are
 * FaceIndex[FaceList[p]:FaceList[p+1]] in corner order.
 */
func (m *MeshData3D) GetFaceIndices() (*MeshAttribute, error) {
	if m.faceIndices != nil {
		return m.faceIndices, nil
	}
	points, err := m.PointsOfCorners()
	if err != nil {
		return nil, logged(err)
	}

	facesOfPoints := make([][]uint32, m.PointCount())
	var total uint32
	if cornerPerFace := m.CornerPerFace(); cornerPerFace != 0 {
		for corner, point := range points {
			if point >= m.PointCount() {
				return nil, logged(errors.Errorf("mesh %q: corner %d references point %d of %d", m.Name, corner, point, m.PointCount()))
			}
			face := uint32(corner) / cornerPerFace
			facesOfPoints[point] = append(facesOfPoints[point], face)
			total++
		}
	}

	faceList := make([]uint32, 0, m.PointCount()+1)
	flat := make([]uint32, 0, total)
	for _, faces := range facesOfPoints {
		faceList = append(faceList, uint32(len(flat)))
		flat = append(flat, faces...)
	}
	faceList = append(faceList, uint32(len(flat)))

	faceIndexType := metadata.AttributeTypeUInt16
	if m.FaceCount() > gomath.MaxUint16 {
		faceIndexType = metadata.AttributeTypeUInt32
	}
	// everything that can fail runs before FaceIndex is allocated, so a
	// failed call leaves the mesh unchanged
	encoded, err := encodeIndices(AttributeFaceIndex, faceIndexType, flat)
	if err != nil {
		return nil, logged(err)
	}
	if err := setValues(m.FaceList, faceList); err != nil {
		return nil, logged(err)
	}
	faceIndices, err := m.addAttribute(AttributeFaceIndex, metadata.AttributeDomainPoint, faceIndexType, total)
	if err != nil {
		return nil, err
	}
	if err := setBytes(faceIndices, encoded); err != nil {
		return nil, logged(err)
	}

	m.Uniform.FaceIndexOfPointOffset = faceIndices.IndexOffset
	if faceIndexType == metadata.AttributeTypeUInt32 {
		m.Uniform.UseU32Indices |= metadata.UseU32FaceIndices
	}
	m.faceIndices = faceIndices
	return faceIndices, nil
}

/** @brief Reads PointOfCorner back, widened to 32 bits. */
func (m *MeshData3D) PointsOfCorners() ([]uint32, error) {
	return getIndices(m.PointOfCorner)
}

func (m *MeshData3D) SetPointsOfCorners(indices []uint32) error {
	return setIndices(m.PointOfCorner, indices)
}

func (m *MeshData3D) SetPositions(positions []math.Vec3) error {
	return setValues(m.Position, positions)
}

// WriteUniform uploads the mesh record.
func (m *MeshData3D) WriteUniform(frame renderer.Frame) error {
	return m.scene.writeRecord(frame, m.MeshIndex, &m.Uniform)
}

/**
 * @brief Uploads every attribute and the mesh record. Face indices are
 * built first if needed.
 */
func (m *MeshData3D) Write(frame renderer.Frame) error {
	if _, err := m.GetFaceIndices(); err != nil {
		return err
	}
	err := m.scene.device.ExecuteSingleTimeCommands(frame, func(f renderer.Frame) error {
		for _, at := range m.attributes {
			if len(at.Buffer) == 0 {
				continue
			}
			if err := f.QueueWrite(m.scene.attributeBuffer, at.ByteOffset(), at.Buffer); err != nil {
				return errors.Wrapf(err, "attribute %q", at.Name)
			}
		}
		return m.WriteUniform(f)
	})
	if err != nil {
		return logged(errors.Wrapf(err, "write mesh %q", m.Name))
	}
	return nil
}

/** @brief Applies the shape key weights to the positions. No-op without morphs. */
func (m *MeshData3D) CalcMorphs(frame renderer.Frame) error {
	morphs := m.Position.Morphs
	if morphs == nil || len(morphs.Values) == 0 {
		return nil
	}
	kernel, err := kernelOrErr(m.scene.kernels.UpdateShape, KernelUpdateShape)
	if err != nil {
		return logged(err)
	}
	weights := make([]float32, len(morphs.Values))
	for i, v := range morphs.Values {
		weights[i] = v.Value
	}
	push := metadata.ShapePushConstants{
		PositionOffset: m.Position.IndexOffset,
		PointCount:     m.PointCount(),
		ShapeOffset:    morphs.Attribute.IndexOffset,
		ShapeCount:     uint32(len(morphs.Values)),
		DeltaOffset:    morphs.ValuesIndexOffset,
	}
	err = m.scene.device.ExecuteSingleTimeCommands(frame, func(f renderer.Frame) error {
		b, err := serial.ToBytes(weights)
		if err != nil {
			return err
		}
		if err := f.QueueWrite(m.scene.attributeBuffer, uint64(morphs.ValuesIndexOffset)*4, b); err != nil {
			return err
		}
		if err := f.WaitForCommands(); err != nil {
			return err
		}
		return renderer.DispatchWith(f, kernel, &push, m.PointCount(), m.scene.attributeBuffer)
	})
	if err != nil {
		return logged(errors.Wrapf(err, "morphs of mesh %q", m.Name))
	}
	return nil
}

func (m *MeshData3D) CalcFaceNormals(frame renderer.Frame) error {
	return m.dispatchMesh(frame, m.scene.kernels.NormalOfFaces, KernelNormalOfFaces, m.FaceCount())
}

func (m *MeshData3D) CalcPointNormals(frame renderer.Frame) error {
	return m.dispatchMesh(frame, m.scene.kernels.NormalOfVertices, KernelNormalOfVertices, m.PointCount())
}

/** @brief Computes the tangents of every UV map. No-op without UV maps. */
func (m *MeshData3D) CalcUvTangents(frame renderer.Frame) error {
	if len(m.uvMaps) == 0 {
		return nil
	}
	return m.dispatchMesh(frame, m.scene.kernels.TangentOfCorners, KernelTangentOfCorners, m.CornerCount())
}

func (m *MeshData3D) dispatchMesh(frame renderer.Frame, k renderer.Kernel, name string, invocations uint32) error {
	kernel, err := kernelOrErr(k, name)
	if err != nil {
		return logged(err)
	}
	push := metadata.MeshPushConstants{
		MeshIndex:     m.MeshIndex,
		CornerPerFace: m.CornerPerFace(),
	}
	err = m.scene.device.ExecuteSingleTimeCommands(frame, func(f renderer.Frame) error {
		return renderer.DispatchWith(f, kernel, &push, invocations, m.scene.sceneBuffer, m.scene.attributeBuffer)
	})
	if err != nil {
		return logged(errors.Wrapf(err, "%s of mesh %q", name, m.Name))
	}
	return nil
}

func getIndices(at *MeshAttribute) ([]uint32, error) {
	switch at.Type {
	case metadata.AttributeTypeUInt16:
		narrow, err := serial.FromBytes[uint16](at.Buffer)
		if err != nil {
			return nil, err
		}
		out := make([]uint32, len(narrow))
		for i, v := range narrow {
			out[i] = uint32(v)
		}
		return out, nil
	case metadata.AttributeTypeUInt32:
		return serial.FromBytes[uint32](at.Buffer)
	}
	return nil, errors.Wrapf(core.ErrInvalidAttributeType, "%q holds %s, not indices", at.Name, at.Type)
}

// setIndices stores indices in the width of at, u16 or u32.
func setIndices(at *MeshAttribute, indices []uint32) error {
	b, err := encodeIndices(at.Name, at.Type, indices)
	if err != nil {
		return err
	}
	return setBytes(at, b)
}

func encodeIndices(name string, typ metadata.AttributeType, indices []uint32) ([]byte, error) {
	switch typ {
	case metadata.AttributeTypeUInt16:
		narrow := make([]uint16, len(indices))
		for i, v := range indices {
			if v > gomath.MaxUint16 {
				return nil, errors.Errorf("%q: index %d does not fit in 16 bits", name, v)
			}
			narrow[i] = uint16(v)
		}
		return serial.ToBytes(narrow)
	case metadata.AttributeTypeUInt32:
		return serial.ToBytes(indices)
	}
	return nil, errors.Wrapf(core.ErrInvalidAttributeType, "%q holds %s, not indices", name, typ)
}

func setValues[T any](at *MeshAttribute, values []T) error {
	b, err := serial.ToBytes(values)
	if err != nil {
		return err
	}
	return setBytes(at, b)
}

// setBytes copies b over the start of the host buffer of at.
func setBytes(at *MeshAttribute, b []byte) error {
	if len(b) > len(at.Buffer) {
		return errors.Wrapf(core.ErrBufferSizeMismatch, "%q: %d bytes into %d", at.Name, len(b), len(at.Buffer))
	}
	copy(at.Buffer, b)
	return nil
}
