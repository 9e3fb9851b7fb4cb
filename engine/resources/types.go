package resources

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/core"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-mesh/engine/serial"
)

/** @brief A magic number indicating the file as a mesh file ('K','M','F',0). */
const MeshMagic uint32 = 0x00464D4B

/** @brief A magic number indicating the file as a scene file ('K','S','C',0). */
const SceneMagic uint32 = 0x0043534B

/**
 * @brief A named delta stream applied on top of an attribute, one value
 * per element of the owning attribute's domain.
 */
type MeshFileMorph struct {
	Name     string
	BaseName string
	Value    float32
	Min      float32
	Max      float32
	Buffer   []byte
}

func (m *MeshFileMorph) Fields() []any {
	return []any{&m.Name, &m.BaseName, &m.Value, &m.Min, &m.Max, serial.Bytes(&m.Buffer)}
}

/**
 * @brief A typed per domain data stream. The buffer holds
 * element count(domain) * byte size(type) bytes.
 */
type MeshFileAttribute struct {
	Name   string
	Domain metadata.AttributeDomain
	Type   metadata.AttributeType
	Buffer []byte
	Morphs []MeshFileMorph
}

func (a *MeshFileAttribute) Fields() []any {
	return []any{&a.Name, &a.Domain, &a.Type, serial.Bytes(&a.Buffer), serial.Slice(&a.Morphs)}
}

/** @brief A contiguous range of faces drawn with one material. */
type MeshFileMaterialRange struct {
	MaterialIndex uint32
	Offset        uint32
	Count         uint32
}

type MeshFileMaterial struct {
	Name string
}

func (m *MeshFileMaterial) Fields() []any {
	return []any{&m.Name}
}

type MeshFile struct {
	Name        string
	PointCount  uint32
	EdgeCount   uint32
	FaceCount   uint32
	CornerCount uint32
	/** @brief Attributes in insertion order. */
	Attributes []MeshFileAttribute
	/** @brief Indices into Attributes of the UV maps. */
	UvIndices []uint32
	Materials []MeshFileMaterialRange
}

func (mf *MeshFile) Fields() []any {
	return []any{
		&mf.Name,
		&mf.PointCount, &mf.EdgeCount, &mf.FaceCount, &mf.CornerCount,
		serial.Slice(&mf.Attributes),
		serial.Slice(&mf.UvIndices),
		serial.Slice(&mf.Materials),
	}
}

type SceneFile struct {
	Meshes     []MeshFile
	Objects    []ObjectInstance
	Materials  []MeshFileMaterial
	Collection *Collection
}

func (sf *SceneFile) Fields() []any {
	return []any{
		serial.Slice(&sf.Meshes),
		serial.Slice(&sf.Objects),
		serial.Slice(&sf.Materials),
		serial.Ptr(&sf.Collection),
	}
}

/** @brief Options of the Save functions. */
type SaveOptions struct {
	/**
	 * @brief When set, a file that cannot be created is logged and
	 * skipped instead of failing the save.
	 */
	BestEffort bool
}

func (mf *MeshFile) Write(w io.Writer) error {
	return writeTagged(w, MeshMagic, mf)
}

func (mf *MeshFile) Read(r io.Reader) error {
	return readTagged(r, MeshMagic, mf)
}

func (mf *MeshFile) Save(path string, opts ...SaveOptions) error {
	return save(path, mf.Write, opts)
}

func LoadMeshFile(path string) (*MeshFile, error) {
	mf := &MeshFile{}
	if err := load(path, mf.Read); err != nil {
		return nil, err
	}
	return mf, nil
}

func (sf *SceneFile) Write(w io.Writer) error {
	return writeTagged(w, SceneMagic, sf)
}

func (sf *SceneFile) Read(r io.Reader) error {
	return readTagged(r, SceneMagic, sf)
}

func (sf *SceneFile) Save(path string, opts ...SaveOptions) error {
	return save(path, sf.Write, opts)
}

func LoadSceneFile(path string) (*SceneFile, error) {
	sf := &SceneFile{}
	if err := load(path, sf.Read); err != nil {
		return nil, err
	}
	return sf, nil
}

func writeTagged(w io.Writer, magic uint32, body serial.Composite) error {
	return serial.Encode(w, &magic, body)
}

func readTagged(r io.Reader, magic uint32, body serial.Composite) error {
	var found uint32
	if err := serial.Decode(r, &found); err != nil {
		return errors.Wrap(err, "read magic")
	}
	if found != magic {
		return fmt.Errorf("%w: expected %x, found %x", core.ErrInvalidMagic, magic, found)
	}
	return serial.Decode(r, body)
}

func save(path string, write func(io.Writer) error, opts []SaveOptions) error {
	var opt SaveOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	f, err := os.Create(path)
	if err != nil {
		if opt.BestEffort {
			core.LogWarn("skipping save of %s: %s", path, err)
			return nil
		}
		return errors.Wrapf(err, "save %s", path)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	return f.Close()
}

func load(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	defer f.Close()

	if err := read(bufio.NewReader(f)); err != nil {
		return errors.Wrapf(err, "load %s", path)
	}
	return nil
}
