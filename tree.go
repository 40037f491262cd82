package terminator

import (
	"context"

	"github.com/tribhuwan-kumar/terminator/internal/core/domain/element"
)

// TreeNode is one serializable node of a tree dump.
type TreeNode struct {
	Role     string      `json:"role"`
	Name     string      `json:"name,omitempty"`
	NativeID string      `json:"nativeId,omitempty"`
	Bounds   [4]int      `json:"bounds"`
	Enabled  bool        `json:"enabled"`
	Children []*TreeNode `json:"children,omitempty"`
}

// defaultTreeDepth bounds tree dumps when the caller passes no depth.
const defaultTreeDepth = 25

// FocusedWindowTree dumps the focused window's subtree for diagnosis,
// walking at most maxDepth levels (a non-positive depth uses the default).
func (d *Desktop) FocusedWindowTree(ctx context.Context, maxDepth int) (*TreeNode, error) {
	node, err := d.platform.FocusedWindow(ctx)
	if err != nil {
		return nil, err
	}

	root, err := element.New(d.platform, node)
	if err != nil {
		return nil, err
	}

	return d.dumpTree(ctx, root, maxDepth)
}

// Explore dumps the element's subtree one level deep: the node itself plus
// its direct children.
func (e *Element) Explore(ctx context.Context) (*TreeNode, error) {
	return e.desktop.dumpTree(ctx, e.inner, 1)
}

func (d *Desktop) dumpTree(
	ctx context.Context,
	root *element.Element,
	maxDepth int,
) (*TreeNode, error) {
	if maxDepth <= 0 {
		maxDepth = defaultTreeDepth
	}

	var walk func(elem *element.Element, depth int) (*TreeNode, error)

	walk = func(elem *element.Element, depth int) (*TreeNode, error) {
		info, err := elem.Info(ctx)
		if err != nil {
			return nil, err
		}

		node := &TreeNode{
			Role:     info.Role,
			Name:     info.Name,
			NativeID: info.NativeID,
			Bounds: [4]int{
				info.Bounds.Min.X, info.Bounds.Min.Y,
				info.Bounds.Dx(), info.Bounds.Dy(),
			},
			Enabled: info.Enabled,
		}

		if depth >= maxDepth {
			return node, nil
		}

		children, err := elem.Children(ctx)
		if err != nil {
			// A vanished subtree truncates the dump, never fails it.
			return node, nil //nolint:nilerr
		}

		for _, child := range children {
			childNode, childErr := walk(child, depth+1)
			if childErr != nil {
				continue
			}

			node.Children = append(node.Children, childNode)
		}

		return node, nil
	}

	return walk(root, 0)
}
