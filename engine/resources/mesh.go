package resources

import (
	gomath "math"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/math"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/serial"
)

/** @brief Well known attribute names. */
const (
	AttributePosition      = "position"
	AttributeMaterialIndex = "material_index"
	AttributeCornerVert    = ".corner_vert"
)

func NewMeshFile(name string, pointCount, edgeCount, faceCount, cornerCount uint32) *MeshFile {
	return &MeshFile{
		Name:        name,
		PointCount:  pointCount,
		EdgeCount:   edgeCount,
		FaceCount:   faceCount,
		CornerCount: cornerCount,
	}
}

func (mf *MeshFile) Counts() metadata.ElementCounts {
	return metadata.ElementCounts{
		Points:  mf.PointCount,
		Edges:   mf.EdgeCount,
		Faces:   mf.FaceCount,
		Corners: mf.CornerCount,
	}
}

// CornersPerFace returns 0 for a mesh without faces.
func (mf *MeshFile) CornersPerFace() (uint32, error) {
	if mf.FaceCount == 0 {
		return 0, nil
	}
	if mf.CornerCount%mf.FaceCount != 0 {
		return 0, errors.Wrapf(core.ErrNonUniformTopology, "mesh %q: %d corners, %d faces", mf.Name, mf.CornerCount, mf.FaceCount)
	}
	return mf.CornerCount / mf.FaceCount, nil
}

func (mf *MeshFile) FindAttribute(name string) *MeshFileAttribute {
	for i := range mf.Attributes {
		if mf.Attributes[i].Name == name {
			return &mf.Attributes[i]
		}
	}
	return nil
}

/**
 * @brief Appends an attribute, copying buffer. UV maps given as Vec2 are
 * converted to Vec2F16 with EncodeUV, and 32 bit corner vertex indices are
 * narrowed to 16 bit when every point index fits.
 */
func (mf *MeshFile) AddAttribute(name string, domain metadata.AttributeDomain, typ metadata.AttributeType, buffer []byte, isUV bool) error {
	if isUV && typ != metadata.AttributeTypeVec2F16 {
		if domain != metadata.AttributeDomainCorner || typ != metadata.AttributeTypeVec2 {
			return errors.Wrapf(core.ErrInvalidAttributeType, "uv map %q must be a Corner Vec2 attribute, got %s %s", name, domain, typ)
		}
		uvs, err := serial.FromBytes[math.Vec2](buffer)
		if err != nil {
			return errors.Wrapf(err, "uv map %q", name)
		}
		encoded := make([]math.Vec2F16, len(uvs))
		for i, uv := range uvs {
			encoded[i] = EncodeUV(uv)
		}
		b, err := serial.ToBytes(encoded)
		if err != nil {
			return err
		}
		return mf.AddAttribute(name, domain, metadata.AttributeTypeVec2F16, b, true)
	}

	if name == AttributeCornerVert && typ == metadata.AttributeTypeUInt32 && mf.PointCount <= gomath.MaxUint16 {
		indices, err := serial.FromBytes[uint32](buffer)
		if err != nil {
			return errors.Wrapf(err, "attribute %q", name)
		}
		narrow := make([]uint16, len(indices))
		for i, idx := range indices {
			narrow[i] = uint16(idx)
		}
		b, err := serial.ToBytes(narrow)
		if err != nil {
			return err
		}
		return mf.AddAttribute(name, domain, metadata.AttributeTypeUInt16, b, isUV)
	}

	count, err := mf.Counts().Of(domain)
	if err != nil {
		return err
	}
	size, err := metadata.ByteSizeOf(typ)
	if err != nil {
		return err
	}
	if want := uint64(count) * uint64(size); uint64(len(buffer)) != want {
		return errors.Wrapf(core.ErrBufferSizeMismatch, "attribute %q: %d bytes, expected %d", name, len(buffer), want)
	}
	if mf.FindAttribute(name) != nil {
		return errors.Wrapf(core.ErrAttributeExists, "attribute %q", name)
	}

	if isUV {
		mf.UvIndices = append(mf.UvIndices, uint32(len(mf.Attributes)))
	}
	mf.Attributes = append(mf.Attributes, MeshFileAttribute{
		Name:   name,
		Domain: domain,
		Type:   typ,
		Buffer: append([]byte(nil), buffer...),
	})
	return nil
}

// AddShapeKey appends a morph of the position attribute. buffer holds one
// Vec3 per point.
func (mf *MeshFile) AddShapeKey(name, baseName string, value, min, max float32, buffer []byte) error {
	at := mf.FindAttribute(AttributePosition)
	if at == nil {
		return errors.Wrapf(core.ErrAttributeNotFound, "shape key %q needs attribute %q", name, AttributePosition)
	}
	if want := uint64(mf.PointCount) * 12; uint64(len(buffer)) != want {
		return errors.Wrapf(core.ErrBufferSizeMismatch, "shape key %q: %d bytes, expected %d", name, len(buffer), want)
	}
	at.Morphs = append(at.Morphs, MeshFileMorph{
		Name:     name,
		BaseName: baseName,
		Value:    value,
		Min:      min,
		Max:      max,
		Buffer:   append([]byte(nil), buffer...),
	})
	return nil
}

// AddMaterial adds a material slot covering every face. Ranges are narrowed
// by ReorderMaterials.
func (mf *MeshFile) AddMaterial(id uint32) {
	mf.Materials = append(mf.Materials, MeshFileMaterialRange{
		MaterialIndex: id,
		Offset:        0,
		Count:         mf.FaceCount,
	})
}

/** @brief Returns the attributes listed as UV maps. */
func (mf *MeshFile) UvMaps() ([]*MeshFileAttribute, error) {
	out := make([]*MeshFileAttribute, 0, len(mf.UvIndices))
	for _, idx := range mf.UvIndices {
		if int(idx) >= len(mf.Attributes) {
			return nil, errors.Wrapf(core.ErrAttributeNotFound, "mesh %q: uv index %d of %d attributes", mf.Name, idx, len(mf.Attributes))
		}
		out = append(out, &mf.Attributes[idx])
	}
	return out, nil
}
