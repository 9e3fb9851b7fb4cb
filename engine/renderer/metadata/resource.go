package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Unknown resource type, ignored by the asset manager. */
	ResourceTypeNone ResourceType = iota
	/** @brief Binary resource type (compiled compute kernels). */
	ResourceTypeBinary
	/** @brief A single mesh file (.kmf). */
	ResourceTypeMesh
	/** @brief A scene file (.ksc). */
	ResourceTypeScene
	/** @brief A glTF document (.gltf, .glb), imported into a scene. */
	ResourceTypeGLTF
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeMesh:
		return "mesh"
	case ResourceTypeScene:
		return "scene"
	case ResourceTypeGLTF:
		return "gltf"
	}
	return "none"
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The type of the resource. */
	Type ResourceType
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}
