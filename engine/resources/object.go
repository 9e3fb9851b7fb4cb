package resources

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/math"
)

type RotationMode uint8

const (
	RotationModeQuat RotationMode = iota
	RotationModeXYZ
	RotationModeXZY
	RotationModeYXZ
	RotationModeYZX
	RotationModeZXY
	RotationModeZYX
)

var rotationModeNames = [...]string{
	RotationModeQuat: "QUATERNION",
	RotationModeXYZ:  "XYZ",
	RotationModeXZY:  "XZY",
	RotationModeYXZ:  "YXZ",
	RotationModeYZX:  "YZX",
	RotationModeZXY:  "ZXY",
	RotationModeZYX:  "ZYX",
}

func (m RotationMode) Valid() bool {
	return int(m) < len(rotationModeNames)
}

func (m RotationMode) String() string {
	if !m.Valid() {
		return "Invalid"
	}
	return rotationModeNames[m]
}

// ParseRotationMode accepts the exporter names (QUATERNION, XYZ, ...).
func ParseRotationMode(name string) (RotationMode, error) {
	for i, n := range rotationModeNames {
		if n == name {
			return RotationMode(i), nil
		}
	}
	return 0, errors.Wrapf(core.ErrInvalidRotationMode, "%q", name)
}

/** @brief Viewport display toggles of an object, one bit each. */
type ViewportDisplayFlags uint32

const (
	ViewportDisplayName ViewportDisplayFlags = 1 << iota
	ViewportDisplayAxes
	ViewportDisplayWireframe
	ViewportDisplayAllEdges
	ViewportDisplayTextureSpace
	ViewportDisplayShadow
	ViewportDisplayInFront
)

func (f ViewportDisplayFlags) Has(flag ViewportDisplayFlags) bool {
	return f&flag != 0
}

func (f *ViewportDisplayFlags) Set(flag ViewportDisplayFlags, enabled bool) {
	if enabled {
		*f |= flag
	} else {
		*f &^= flag
	}
}

/**
 * @brief A placement of mesh data in the scene. DataIndex indexes the
 * meshes of the owning scene file.
 */
type ObjectInstance struct {
	Name         string
	DataIndex    uint32
	Location     math.Vec3
	RotationMode RotationMode
	/** @brief Euler angles in radians, per axis. Unused in quaternion mode. */
	Rotation        math.Vec3
	RotationQuat    math.Quaternion
	Scale           math.Vec3
	ViewportDisplay ViewportDisplayFlags
}

func (o *ObjectInstance) Fields() []any {
	return []any{
		&o.Name, &o.DataIndex, &o.Location, &o.RotationMode,
		&o.Rotation, &o.RotationQuat, &o.Scale, &o.ViewportDisplay,
	}
}

/**
 * @brief Creates an object and derives its quaternion from the rotation
 * mode. In quaternion mode the supplied quaternion is kept as is.
 */
func NewObjectInstance(name string, dataIndex uint32, location math.Vec3, mode RotationMode, euler math.Vec3, quat math.Quaternion, scale math.Vec3) (ObjectInstance, error) {
	o := ObjectInstance{
		Name:         name,
		DataIndex:    dataIndex,
		Location:     location,
		RotationMode: mode,
		Rotation:     euler,
		RotationQuat: quat,
		Scale:        scale,
	}
	q, err := o.CanonicalRotation()
	if err != nil {
		return ObjectInstance{}, err
	}
	o.RotationQuat = q
	return o, nil
}

// CanonicalRotation converts the tagged rotation into a unit quaternion.
// Euler angles are applied in the order the mode names.
func (o *ObjectInstance) CanonicalRotation() (math.Quaternion, error) {
	r := o.Rotation
	var q mgl32.Quat
	switch o.RotationMode {
	case RotationModeQuat:
		if o.RotationQuat == (math.Quaternion{}) {
			return math.NewQuatIdentity(), nil
		}
		return o.RotationQuat.Normalize(), nil
	case RotationModeXYZ:
		q = mgl32.AnglesToQuat(r.X, r.Y, r.Z, mgl32.XYZ)
	case RotationModeXZY:
		q = mgl32.AnglesToQuat(r.X, r.Z, r.Y, mgl32.XZY)
	case RotationModeYXZ:
		q = mgl32.AnglesToQuat(r.Y, r.X, r.Z, mgl32.YXZ)
	case RotationModeYZX:
		q = mgl32.AnglesToQuat(r.Y, r.Z, r.X, mgl32.YZX)
	case RotationModeZXY:
		q = mgl32.AnglesToQuat(r.Z, r.X, r.Y, mgl32.ZXY)
	case RotationModeZYX:
		q = mgl32.AnglesToQuat(r.Z, r.Y, r.X, mgl32.ZYX)
	default:
		return math.Quaternion{}, errors.Wrapf(core.ErrInvalidRotationMode, "%d", o.RotationMode)
	}
	return math.NewQuatFromMgl(q), nil
}
