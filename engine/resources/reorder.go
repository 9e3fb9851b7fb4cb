package resources

import (
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/serial"
)

// faceRun is a maximal run of consecutive faces sharing one material.
type faceRun struct {
	start uint32
	count uint32
}

/**
 * @brief Permutes every Face and Corner attribute so the faces of each
 * material slot are contiguous, then rewrites the material ranges. Slots are
 * laid out in ascending order and runs keep their relative order, so the
 * pass is stable and a second run changes nothing. Offsets and counts are
 * in faces. Meshes with at most one slot or without a material_index
 * attribute are left untouched.
 * Ranges stay indexed by slot: Materials[id] describes slot id, and a slot
 * no face uses keeps its entry with Count 0 at the offset where it would start.
 */
func ReorderMaterials(mf *MeshFile) error {
	if len(mf.Materials) <= 1 {
		return nil
	}
	at := mf.FindAttribute(AttributeMaterialIndex)
	if at == nil {
		return nil
	}
	if at.Domain != metadata.AttributeDomainFace || at.Type != metadata.AttributeTypeUInt32 {
		return errors.Wrapf(core.ErrInvalidAttributeType, "%s must be a Face UInt32 attribute, got %s %s", AttributeMaterialIndex, at.Domain, at.Type)
	}
	ids, err := serial.FromBytes[uint32](at.Buffer)
	if err != nil {
		return err
	}
	if uint32(len(ids)) != mf.FaceCount {
		return errors.Wrapf(core.ErrBufferSizeMismatch, "%s has %d values for %d faces", AttributeMaterialIndex, len(ids), mf.FaceCount)
	}
	cornerPerFace, err := mf.CornersPerFace()
	if err != nil {
		return err
	}

	runs := make([][]faceRun, len(mf.Materials))
	for i := uint32(0); i < uint32(len(ids)); {
		id := ids[i]
		if int(id) >= len(runs) {
			return errors.Wrapf(core.ErrMaterialOutOfRange, "mesh %q face %d uses slot %d of %d", mf.Name, i, id, len(runs))
		}
		n := uint32(1)
		for i+n < uint32(len(ids)) && ids[i+n] == id {
			n++
		}
		runs[id] = append(runs[id], faceRun{start: i, count: n})
		i += n
	}

	for i := range mf.Attributes {
		at := &mf.Attributes[i]
		if at.Domain != metadata.AttributeDomainFace && at.Domain != metadata.AttributeDomainCorner {
			continue
		}
		stride, err := metadata.ByteSizeOf(at.Type)
		if err != nil {
			return err
		}
		if at.Domain == metadata.AttributeDomainCorner {
			stride *= cornerPerFace
		}
		if at.Buffer, err = permuteFaces(at.Buffer, runs, stride, mf.FaceCount); err != nil {
			return errors.Wrapf(err, "attribute %q", at.Name)
		}
		for j := range at.Morphs {
			m := &at.Morphs[j]
			if m.Buffer, err = permuteFaces(m.Buffer, runs, stride, mf.FaceCount); err != nil {
				return errors.Wrapf(err, "morph %q of attribute %q", m.Name, at.Name)
			}
		}
	}

	var offset uint32
	for id, rs := range runs {
		var count uint32
		for _, r := range rs {
			count += r.count
		}
		mf.Materials[id].Offset = offset
		mf.Materials[id].Count = count
		offset += count
	}
	return nil
}

func permuteFaces(buffer []byte, runs [][]faceRun, stride, faceCount uint32) ([]byte, error) {
	if uint64(len(buffer)) != uint64(stride)*uint64(faceCount) {
		return nil, errors.Wrapf(core.ErrBufferSizeMismatch, "%d bytes for %d faces of %d bytes", len(buffer), faceCount, stride)
	}
	out := make([]byte, 0, len(buffer))
	for _, rs := range runs {
		for _, r := range rs {
			out = append(out, buffer[r.start*stride:(r.start+r.count)*stride]...)
		}
	}
	return out, nil
}
