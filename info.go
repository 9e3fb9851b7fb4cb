package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/anima-mesh/engine/resources"
	"gopkg.in/yaml.v3"
)

type attributeInfo struct {
	Name   string   `yaml:"name"`
	Domain string   `yaml:"domain"`
	Type   string   `yaml:"type"`
	Bytes  int      `yaml:"bytes"`
	UV     bool     `yaml:"uv,omitempty"`
	Morphs []string `yaml:"morphs,omitempty"`
}

type materialRangeInfo struct {
	Material uint32 `yaml:"material"`
	Offset   uint32 `yaml:"offset"`
	Count    uint32 `yaml:"count"`
}

type meshInfo struct {
	Name       string              `yaml:"name"`
	Points     uint32              `yaml:"points"`
	Edges      uint32              `yaml:"edges"`
	Faces      uint32              `yaml:"faces"`
	Corners    uint32              `yaml:"corners"`
	Attributes []attributeInfo     `yaml:"attributes,omitempty"`
	Materials  []materialRangeInfo `yaml:"materials,omitempty"`
}

type objectInfo struct {
	Name     string     `yaml:"name"`
	Mesh     uint32     `yaml:"mesh"`
	Rotation string     `yaml:"rotation_mode"`
	Location [3]float32 `yaml:"location,flow"`
	Quat     [4]float32 `yaml:"quaternion,flow"`
	Scale    [3]float32 `yaml:"scale,flow"`
}

type collectionInfo struct {
	Name     string            `yaml:"name"`
	Objects  []uint32          `yaml:"objects,flow,omitempty"`
	Flags    uint32            `yaml:"flags"`
	Children []*collectionInfo `yaml:"children,omitempty"`
}

type sceneInfo struct {
	Meshes     []meshInfo      `yaml:"meshes"`
	Objects    []objectInfo    `yaml:"objects,omitempty"`
	Materials  []string        `yaml:"materials,omitempty"`
	Collection *collectionInfo `yaml:"collection,omitempty"`
}

func describeMesh(mf *resources.MeshFile) meshInfo {
	uv := make(map[int]bool, len(mf.UvIndices))
	for _, idx := range mf.UvIndices {
		uv[int(idx)] = true
	}
	info := meshInfo{
		Name:    mf.Name,
		Points:  mf.PointCount,
		Edges:   mf.EdgeCount,
		Faces:   mf.FaceCount,
		Corners: mf.CornerCount,
	}
	for i, at := range mf.Attributes {
		ai := attributeInfo{
			Name:   at.Name,
			Domain: at.Domain.String(),
			Type:   at.Type.String(),
			Bytes:  len(at.Buffer),
			UV:     uv[i],
		}
		for _, m := range at.Morphs {
			ai.Morphs = append(ai.Morphs, fmt.Sprintf("%s=%g", m.Name, m.Value))
		}
		info.Attributes = append(info.Attributes, ai)
	}
	for _, r := range mf.Materials {
		info.Materials = append(info.Materials, materialRangeInfo{Material: r.MaterialIndex, Offset: r.Offset, Count: r.Count})
	}
	return info
}

func describeCollection(c *resources.Collection) *collectionInfo {
	if c == nil {
		return nil
	}
	info := &collectionInfo{Name: c.Name, Objects: c.Objects(), Flags: uint32(c.Flags)}
	for _, child := range c.Children {
		info.Children = append(info.Children, describeCollection(child))
	}
	return info
}

func describeScene(sf *resources.SceneFile) sceneInfo {
	info := sceneInfo{Meshes: make([]meshInfo, 0, len(sf.Meshes))}
	for i := range sf.Meshes {
		info.Meshes = append(info.Meshes, describeMesh(&sf.Meshes[i]))
	}
	for _, o := range sf.Objects {
		info.Objects = append(info.Objects, objectInfo{
			Name:     o.Name,
			Mesh:     o.DataIndex,
			Rotation: o.RotationMode.String(),
			Location: [3]float32{o.Location.X, o.Location.Y, o.Location.Z},
			Quat:     [4]float32{o.RotationQuat.X, o.RotationQuat.Y, o.RotationQuat.Z, o.RotationQuat.W},
			Scale:    [3]float32{o.Scale.X, o.Scale.Y, o.Scale.Z},
		})
	}
	for _, m := range sf.Materials {
		info.Materials = append(info.Materials, m.Name)
	}
	info.Collection = describeCollection(sf.Collection)
	return info
}

// printInfo writes v, a *resources.MeshFile or *resources.SceneFile, as
// text, yaml or a spew dump of the decoded value.
func printInfo(w io.Writer, v any, format string) error {
	var info any
	switch f := v.(type) {
	case *resources.MeshFile:
		info = describeMesh(f)
	case *resources.SceneFile:
		info = describeScene(f)
	default:
		return errors.Errorf("cannot describe %T", v)
	}

	switch format {
	case "text", "":
		return printText(w, info)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return err
		}
		return enc.Close()
	case "dump":
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, MaxDepth: 6}
		cfg.Fdump(w, v)
		return nil
	}
	return errors.Errorf("unknown format %q, expected text, yaml or dump", format)
}

func printText(w io.Writer, info any) error {
	var sb strings.Builder
	writeMesh := func(m meshInfo, indent string) {
		fmt.Fprintf(&sb, "%smesh %q: %d points, %d edges, %d faces, %d corners\n", indent, m.Name, m.Points, m.Edges, m.Faces, m.Corners)
		for _, at := range m.Attributes {
			uv := ""
			if at.UV {
				uv = " uv"
			}
			fmt.Fprintf(&sb, "%s  %-24s %-6s %-8s %8d bytes%s", indent, at.Name, at.Domain, at.Type, at.Bytes, uv)
			if len(at.Morphs) > 0 {
				fmt.Fprintf(&sb, " morphs: %s", strings.Join(at.Morphs, ", "))
			}
			sb.WriteString("\n")
		}
		for _, r := range m.Materials {
			fmt.Fprintf(&sb, "%s  material %d: faces [%d, %d)\n", indent, r.Material, r.Offset, r.Offset+r.Count)
		}
	}
	var writeCollection func(c *collectionInfo, depth int)
	writeCollection = func(c *collectionInfo, depth int) {
		fmt.Fprintf(&sb, "%s%s %v\n", strings.Repeat("  ", depth+1), c.Name, c.Objects)
		for _, child := range c.Children {
			writeCollection(child, depth+1)
		}
	}

	switch i := info.(type) {
	case meshInfo:
		writeMesh(i, "")
	case sceneInfo:
		fmt.Fprintf(&sb, "%d meshes, %d objects, %d materials\n", len(i.Meshes), len(i.Objects), len(i.Materials))
		for _, m := range i.Meshes {
			writeMesh(m, "")
		}
		for _, o := range i.Objects {
			fmt.Fprintf(&sb, "object %q -> mesh %d, %s at %v scale %v\n", o.Name, o.Mesh, o.Rotation, o.Location, o.Scale)
		}
		for id, name := range i.Materials {
			fmt.Fprintf(&sb, "material %d: %s\n", id, name)
		}
		if i.Collection != nil {
			sb.WriteString("collections:\n")
			writeCollection(i.Collection, 0)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
