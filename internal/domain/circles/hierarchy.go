package circles

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"omscore/pkg/logger"
)

// ErrHierarchyCorruption is matched by every cycle reported by NewIndex.
var ErrHierarchyCorruption = errors.New("circle hierarchy is corrupted")

// HierarchyCorruptionError reports a parent chain that loops back on itself.
type HierarchyCorruptionError struct {
	CircleID int64
	Path     []int64
}

func (e *HierarchyCorruptionError) Error() string {
	return fmt.Sprintf("%s: circle %d is its own ancestor (path %v)", ErrHierarchyCorruption, e.CircleID, e.Path)
}

// Is lets errors.Is match the sentinel.
func (e *HierarchyCorruptionError) Is(target error) bool {
	return target == ErrHierarchyCorruption
}

type node struct {
	parent    int64
	hasParent bool
	bodyID    *int64
}

// Index is an immutable snapshot of the circle forest. It is built once per
// request and is safe for concurrent reads.
type Index struct {
	nodes    map[int64]node
	children map[int64][]int64
}

// NewIndex builds the forest from flat circle records. Parents that point at
// unknown circles are treated as roots. Any cycle fails construction.
func NewIndex(ctx context.Context, records []Circle) (*Index, error) {
	idx := &Index{
		nodes:    make(map[int64]node, len(records)),
		children: make(map[int64][]int64),
	}

	for _, c := range records {
		if _, dup := idx.nodes[c.ID]; dup {
			logger.Warn(ctx, "duplicate circle in snapshot, keeping first", "circle_id", c.ID)
			continue
		}
		n := node{bodyID: c.BodyID}
		if c.ParentCircleID != nil {
			n.parent, n.hasParent = *c.ParentCircleID, true
		}
		idx.nodes[c.ID] = n
	}

	for id, n := range idx.nodes {
		if !n.hasParent {
			continue
		}
		if n.parent == id {
			return nil, &HierarchyCorruptionError{CircleID: id, Path: []int64{id, id}}
		}
		if _, ok := idx.nodes[n.parent]; !ok {
			logger.Warn(ctx, "circle references missing parent, treating as root",
				"circle_id", id,
				"parent_circle_id", n.parent,
			)
			n.hasParent = false
			idx.nodes[id] = n
			continue
		}
		idx.children[n.parent] = append(idx.children[n.parent], id)
	}
	for parent := range idx.children {
		sortIDs(idx.children[parent])
	}

	if err := idx.checkAcyclic(); err != nil {
		return nil, err
	}
	return idx, nil
}

// checkAcyclic walks every parent chain once. Nodes already proven to reach a
// root are skipped, so the whole check is linear in the circle count.
func (idx *Index) checkAcyclic() error {
	settled := make(map[int64]bool, len(idx.nodes))

	for _, start := range idx.sortedIDs() {
		if settled[start] {
			continue
		}
		onPath := make(map[int64]int)
		var path []int64
		cur := start
		for steps := 0; ; steps++ {
			if steps > len(idx.nodes) {
				return &HierarchyCorruptionError{CircleID: start, Path: path}
			}
			if settled[cur] {
				break
			}
			if pos, seen := onPath[cur]; seen {
				loop := append(append([]int64{}, path[pos:]...), cur)
				return &HierarchyCorruptionError{CircleID: cur, Path: loop}
			}
			onPath[cur] = len(path)
			path = append(path, cur)

			n := idx.nodes[cur]
			if !n.hasParent {
				break
			}
			cur = n.parent
		}
		for _, id := range path {
			settled[id] = true
		}
	}
	return nil
}

// Len returns the number of circles in the snapshot.
func (idx *Index) Len() int {
	return len(idx.nodes)
}

// Has reports whether the circle is part of the snapshot.
func (idx *Index) Has(circleID int64) bool {
	_, ok := idx.nodes[circleID]
	return ok
}

// BodyID returns the body a circle is bound to.
func (idx *Index) BodyID(circleID int64) (int64, bool) {
	n, ok := idx.nodes[circleID]
	if !ok || n.bodyID == nil {
		return 0, false
	}
	return *n.bodyID, true
}

// Parent returns the parent of a circle, false for roots and unknown ids.
func (idx *Index) Parent(circleID int64) (int64, bool) {
	n, ok := idx.nodes[circleID]
	if !ok || !n.hasParent {
		return 0, false
	}
	return n.parent, true
}

// Children returns the direct children of a circle in ascending id order.
func (idx *Index) Children(circleID int64) []int64 {
	return append([]int64(nil), idx.children[circleID]...)
}

// Ancestors returns the chain from the circle itself up to its root, both
// inclusive. Unknown circles yield nil.
func (idx *Index) Ancestors(circleID int64) []int64 {
	n, ok := idx.nodes[circleID]
	if !ok {
		return nil
	}

	chain := []int64{circleID}
	for n.hasParent && len(chain) <= len(idx.nodes) {
		chain = append(chain, n.parent)
		n = idx.nodes[n.parent]
	}
	return chain
}

// Descendants returns every circle transitively below the given one, in
// ascending id order. The circle itself is not included.
func (idx *Index) Descendants(circleID int64) []int64 {
	if !idx.Has(circleID) {
		return nil
	}

	var out []int64
	seen := map[int64]bool{circleID: true}
	queue := append([]int64(nil), idx.children[circleID]...)
	for len(queue) > 0 && len(out) < len(idx.nodes) {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		queue = append(queue, idx.children[id]...)
	}
	sortIDs(out)
	return out
}

// Closure returns the union of the ancestor chains of the given circles.
// Circles missing from the snapshot are ignored.
func (idx *Index) Closure(circleIDs []int64) []int64 {
	seen := make(map[int64]struct{})
	for _, id := range circleIDs {
		for _, a := range idx.Ancestors(id) {
			seen[a] = struct{}{}
		}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

func (idx *Index) sortedIDs() []int64 {
	ids := make([]int64, 0, len(idx.nodes))
	for id := range idx.nodes {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
