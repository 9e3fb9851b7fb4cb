package resources

import (
	"maps"
	"slices"

	"github.com/spaghettifunk/anima-mesh/engine/serial"
)

type CollectionFlags uint32

const (
	CollectionViewLayerEnabled CollectionFlags = 1 << iota
	CollectionSelectionEnabled
	CollectionViewportEnabled
	CollectionRenderEnabled
)

/**
 * @brief A node of the scene outliner. Children are owned by their parent,
 * ObjectIds index the objects of the owning scene file.
 */
type Collection struct {
	Name      string
	Children  []*Collection
	ObjectIds map[uint32]struct{}
	Flags     CollectionFlags
}

func (c *Collection) Fields() []any {
	return []any{
		&c.Name,
		serial.SliceFunc(&c.Children, serial.Ptr[Collection]),
		serial.Set(&c.ObjectIds),
		&c.Flags,
	}
}

func NewCollection(name string) *Collection {
	return &Collection{Name: name}
}

func (c *Collection) AddChild(child *Collection) {
	c.Children = append(c.Children, child)
}

func (c *Collection) AddObject(id uint32) {
	if c.ObjectIds == nil {
		c.ObjectIds = make(map[uint32]struct{})
	}
	c.ObjectIds[id] = struct{}{}
}

/** @brief Returns the object ids in ascending order. */
func (c *Collection) Objects() []uint32 {
	return slices.Sorted(maps.Keys(c.ObjectIds))
}

func (c *Collection) Enabled(flag CollectionFlags) bool {
	return c.Flags&flag != 0
}

func (c *Collection) SetEnabled(flag CollectionFlags, enabled bool) {
	if enabled {
		c.Flags |= flag
	} else {
		c.Flags &^= flag
	}
}

func (c *Collection) SetViewLayerEnabled(v bool) { c.SetEnabled(CollectionViewLayerEnabled, v) }
func (c *Collection) SetSelectionEnabled(v bool) { c.SetEnabled(CollectionSelectionEnabled, v) }
func (c *Collection) SetViewportEnabled(v bool)  { c.SetEnabled(CollectionViewportEnabled, v) }
func (c *Collection) SetRenderEnabled(v bool)    { c.SetEnabled(CollectionRenderEnabled, v) }

// Walk visits c and its descendants depth first. Returning false from fn
// skips the children of that node.
func (c *Collection) Walk(fn func(col *Collection, depth int) bool) {
	c.walk(fn, 0)
}

func (c *Collection) walk(fn func(*Collection, int) bool, depth int) {
	if c == nil || !fn(c, depth) {
		return
	}
	for _, child := range c.Children {
		child.walk(fn, depth+1)
	}
}
