// Package wizard implements the step controller of a multi-step form: the
// current step, the set of completed steps and the navigation rules between
// them.
package wizard

import (
	"errors"
	"fmt"
	"sort"

	"github.com/practice/practice/internal/platform/form"
)

// ErrStepOutOfRange is returned when a jump targets a step that does not exist.
var ErrStepOutOfRange = errors.New("step index out of range")

// ErrStepLocked is returned when sequential navigation forbids the jump.
var ErrStepLocked = errors.New("step is locked until the previous steps are completed")

// State is the serializable wizard position.
type State struct {
	Current   int   `json:"current"`
	Completed []int `json:"completed"`
	Total     int   `json:"total"`
}

// Controller tracks navigation through the steps of one form instance. It is
// not safe for concurrent use; sessions serialize access.
type Controller struct {
	def       *form.Definition
	policy    form.Navigation
	current   int
	completed map[int]bool
}

// New returns a controller positioned at the first step. The policy
// overrides the definition's navigation (edit sessions open free).
func New(def *form.Definition, policy form.Navigation) *Controller {
	if policy == "" {
		policy = def.Navigation
	}
	return &Controller{def: def, policy: policy, completed: make(map[int]bool)}
}

// Policy returns the navigation policy in force.
func (c *Controller) Policy() form.Navigation { return c.policy }

// Current returns the current step index.
func (c *Controller) Current() int { return c.current }

// Len returns the number of steps.
func (c *Controller) Len() int { return len(c.def.Steps) }

// IsLast reports whether the current step is the terminal one.
func (c *Controller) IsLast() bool { return c.current == len(c.def.Steps)-1 }

// Completed reports whether step i was completed.
func (c *Controller) Completed(i int) bool { return c.completed[i] }

// State returns a snapshot of the controller position.
func (c *Controller) State() State {
	done := make([]int, 0, len(c.completed))
	for i := range c.completed {
		done = append(done, i)
	}
	sort.Ints(done)
	return State{Current: c.current, Completed: done, Total: len(c.def.Steps)}
}

// Next validates the current step. On success the step is marked completed
// and the controller advances, staying put on the last step. On failure the
// position is unchanged.
func (c *Controller) Next(s form.Snapshot) (form.Results, bool) {
	res := form.ValidateStep(c.def, s, c.current)
	if !res.Valid() {
		return res, false
	}
	c.completed[c.current] = true
	if !c.IsLast() {
		c.current++
	}
	return res, true
}

// Previous moves one step back without validating. It is a no-op on the
// first step.
func (c *Controller) Previous() {
	if c.current > 0 {
		c.current--
	}
}

// CanJump reports whether JumpTo(i) would succeed.
func (c *Controller) CanJump(i int) bool {
	return c.checkJump(i) == nil
}

// JumpTo opens step i directly. Free navigation allows any step. Sequential
// navigation allows going back, staying, or going to a step whose
// predecessors are all completed.
func (c *Controller) JumpTo(i int) error {
	if err := c.checkJump(i); err != nil {
		return err
	}
	c.current = i
	return nil
}

func (c *Controller) checkJump(i int) error {
	if i < 0 || i >= len(c.def.Steps) {
		return fmt.Errorf("%w: %d", ErrStepOutOfRange, i)
	}
	if c.policy == form.NavigationFree || i <= c.current {
		return nil
	}
	for prev := 0; prev < i; prev++ {
		if !c.completed[prev] {
			return fmt.Errorf("%w: step %d", ErrStepLocked, prev)
		}
	}
	return nil
}

// ValidateAll validates every step regardless of the current position. On
// failure the controller moves to the first failing step, which is returned;
// on success -1 is returned and the position is unchanged.
func (c *Controller) ValidateAll(s form.Snapshot) (form.Results, int) {
	var all form.Results
	first := -1
	for i := range c.def.Steps {
		res := form.ValidateStep(c.def, s, i)
		if first < 0 && !res.Valid() {
			first = i
		}
		all = append(all, res...)
	}
	if first >= 0 {
		c.current = first
	}
	return all, first
}

// Reset returns the controller to the first step with nothing completed.
func (c *Controller) Reset() {
	c.current = 0
	c.completed = make(map[int]bool)
}
