package loaders

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/renderer/metadata"
)

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic uint32 = 0x07230203

var ErrInvalidBytecode = errors.New("invalid SPIR-V bytecode")

/**
 * @brief Loads compiled compute kernels. Data is the module as []uint32.
 * The resource name is params["name"] when given, the file name otherwise.
 */
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read kernel binary")
	}

	res, err := bytesToBytecode(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	return &metadata.Resource{
		Name:     resourceName(path, params),
		Type:     assetType,
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     res,
	}, nil
}

func (bl *BinaryLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) < 4 || len(b)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidBytecode, "size %d is not a positive multiple of 4", len(b))
	}
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	if byteCode[0] != SpirvMagic {
		return nil, errors.Wrapf(ErrInvalidBytecode, "magic %#08x", byteCode[0])
	}
	return byteCode, nil
}

func resourceName(path string, params interface{}) string {
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		return p["name"]
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
