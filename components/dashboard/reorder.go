package dashboard

import (
	"errors"
	"fmt"
)

var (
	errDragInProgress = errors.New("dashboard: a drag is already in progress")
	errNotDragging    = errors.New("dashboard: no drag in progress")
)

// MoveSection moves dragged to the index currently held by target, shifting
// the elements in between. It returns a new slice and whether anything moved;
// equal ids or an id missing from order leave order unchanged.
func MoveSection(order []string, dragged, target string) ([]string, bool) {
	out := append([]string(nil), order...)
	if dragged == target {
		return out, false
	}
	from, to := indexOf(order, dragged), indexOf(order, target)
	if from < 0 || to < 0 {
		return out, false
	}
	item := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]string{item}, out[to:]...)...)
	return out, true
}

func indexOf(ids []string, id string) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}

// DragState is the reorder interaction state.
type DragState int

const (
	DragIdle DragState = iota
	DragDragging
)

func (s DragState) String() string {
	switch s {
	case DragIdle:
		return "idle"
	case DragDragging:
		return "dragging"
	default:
		return fmt.Sprintf("DragState(%d)", int(s))
	}
}

// DropResult is the outcome of a completed drag.
type DropResult struct {
	Dragged string   `json:"dragged"`
	Target  string   `json:"target"`
	Order   []string `json:"order"`
	Changed bool     `json:"changed"`
}

// DragController tracks a single drag over the displayed sections. Pointer
// input drives Start/Over/Drop; keyboard input drives Pickup/MoveUp/MoveDown/
// Commit. Both end in the same target-based move. It is not safe for
// concurrent use; Session serializes access.
type DragController struct {
	order  []string
	state  DragState
	active string
	over   string
}

// NewDragController builds an idle controller over the displayed order.
func NewDragController(order []string) *DragController {
	return &DragController{order: append([]string(nil), order...)}
}

// State reports the current interaction state.
func (c *DragController) State() DragState { return c.state }

// Active returns the section being dragged, if any.
func (c *DragController) Active() string { return c.active }

// OverTarget returns the section currently under the dragged item.
func (c *DragController) OverTarget() string { return c.over }

// Order returns the displayed order the controller works over.
func (c *DragController) Order() []string { return append([]string(nil), c.order...) }

// SetOrder replaces the displayed order. It is ignored mid-drag.
func (c *DragController) SetOrder(order []string) {
	if c.state == DragDragging {
		return
	}
	c.order = append([]string(nil), order...)
}

// Start begins a pointer drag of id.
func (c *DragController) Start(id string) error {
	if c.state == DragDragging {
		return errDragInProgress
	}
	if indexOf(c.order, id) < 0 {
		return fmt.Errorf("dashboard: cannot drag unknown section %q", id)
	}
	c.state = DragDragging
	c.active = id
	c.over = id
	return nil
}

// Over records the section under the pointer. Unknown ids are ignored.
func (c *DragController) Over(id string) {
	if c.state != DragDragging || indexOf(c.order, id) < 0 {
		return
	}
	c.over = id
}

// Drop ends the drag over target. An empty target drops on the last Over
// target. Dropping on itself or outside the list yields an unchanged result.
func (c *DragController) Drop(target string) (DropResult, error) {
	if c.state != DragDragging {
		return DropResult{}, errNotDragging
	}
	if target == "" {
		target = c.over
	}
	dragged := c.active
	c.reset()
	order, changed := MoveSection(c.order, dragged, target)
	if changed {
		c.order = order
	}
	return DropResult{Dragged: dragged, Target: target, Order: order, Changed: changed}, nil
}

// Cancel abandons the drag without changes.
func (c *DragController) Cancel() {
	c.reset()
}

// Pickup begins a keyboard drag of id.
func (c *DragController) Pickup(id string) error {
	return c.Start(id)
}

// MoveUp shifts the keyboard target one slot towards the start.
func (c *DragController) MoveUp() {
	c.step(-1)
}

// MoveDown shifts the keyboard target one slot towards the end.
func (c *DragController) MoveDown() {
	c.step(1)
}

// Commit drops on the current keyboard target.
func (c *DragController) Commit() (DropResult, error) {
	return c.Drop("")
}

func (c *DragController) step(delta int) {
	if c.state != DragDragging {
		return
	}
	idx := indexOf(c.order, c.over) + delta
	if idx < 0 || idx >= len(c.order) {
		return
	}
	c.over = c.order[idx]
}

func (c *DragController) reset() {
	c.state = DragIdle
	c.active = ""
	c.over = ""
}
