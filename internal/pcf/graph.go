package pcf

import "fmt"

// LineItem BOM行项：父产品使用 Quantity 个子产品
type LineItem struct {
	ID       string  `json:"id"`
	ParentID string  `json:"parent_product_id"`
	ChildID  string  `json:"line_item_product_id"`
	Quantity float64 `json:"quantity"`
}

type edgeKey struct {
	parent string
	child  string
}

// BOMGraph is an in-memory arena of product ids and their outgoing line items.
// Every insertion runs the cycle guard, so a graph built through AddLineItem
// is always acyclic.
type BOMGraph struct {
	items map[string]*LineItem
	out   map[string][]*LineItem
	pairs map[edgeKey]string
}

func NewBOMGraph() *BOMGraph {
	return &BOMGraph{
		items: make(map[string]*LineItem),
		out:   make(map[string][]*LineItem),
		pairs: make(map[edgeKey]string),
	}
}

// CheckLineItem runs every structural check AddLineItem runs, without
// inserting.
func (g *BOMGraph) CheckLineItem(parentID, childID string, quantity float64) error {
	if parentID == childID {
		return fmt.Errorf("%w: %s", ErrSelfReference, parentID)
	}
	if !(quantity >= 0) {
		return fmt.Errorf("%w: %v", ErrNegativeQuantity, quantity)
	}
	if _, ok := g.pairs[edgeKey{parentID, childID}]; ok {
		return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, parentID, childID)
	}
	if g.Reaches(childID, parentID) {
		return &CycleError{ParentID: parentID, ChildID: childID}
	}
	return nil
}

// AddLineItem inserts an edge after the cycle guard accepted it.
func (g *BOMGraph) AddLineItem(item LineItem) error {
	if err := g.CheckLineItem(item.ParentID, item.ChildID, item.Quantity); err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = item.ParentID + "/" + item.ChildID
	}
	if _, ok := g.items[item.ID]; ok {
		return fmt.Errorf("%w: id %s", ErrDuplicateEdge, item.ID)
	}
	li := &item
	g.items[li.ID] = li
	g.out[li.ParentID] = append(g.out[li.ParentID], li)
	g.pairs[edgeKey{li.ParentID, li.ChildID}] = li.ID
	return nil
}

// Reaches reports whether to is reachable from from by following outgoing
// line items. Depth-first, each node visited once, stops at the first hit.
func (g *BOMGraph) Reaches(from, to string) bool {
	if from == to {
		return true
	}
	visited := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, li := range g.out[node] {
			if li.ChildID == to {
				return true
			}
			if visited[li.ChildID] {
				continue
			}
			visited[li.ChildID] = true
			stack = append(stack, li.ChildID)
		}
	}
	return false
}

// LineItems returns the outgoing edges of a product in insertion order.
func (g *BOMGraph) LineItems(parentID string) []*LineItem {
	return g.out[parentID]
}

func (g *BOMGraph) LineItem(id string) (*LineItem, bool) {
	li, ok := g.items[id]
	return li, ok
}

// SetQuantity changes the multiplier of an existing edge.
func (g *BOMGraph) SetQuantity(id string, quantity float64) error {
	li, ok := g.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLineItem, id)
	}
	if !(quantity >= 0) {
		return fmt.Errorf("%w: %v", ErrNegativeQuantity, quantity)
	}
	li.Quantity = quantity
	return nil
}

func (g *BOMGraph) RemoveLineItem(id string) error {
	li, ok := g.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLineItem, id)
	}
	delete(g.items, id)
	delete(g.pairs, edgeKey{li.ParentID, li.ChildID})
	edges := g.out[li.ParentID]
	for i, e := range edges {
		if e.ID == id {
			g.out[li.ParentID] = append(edges[:i:i], edges[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of edges.
func (g *BOMGraph) Len() int {
	return len(g.items)
}
