package tournament

import (
	"github.com/quay/lockcore"
)

// Step is one lock on a participant's path through the tree.
type Step struct {
	// Level is the tree level, with the root at 0.
	Level int
	// Index is the position of the lock in the breadth-first lock array.
	Index int
	// Role is the role the participant takes on this lock.
	Role lockcore.Role
	// Handle is the pool handle of the lock.
	Handle lockcore.Handle
}

// At computes the step for participant "self" at level "l" of a tree with
// "levels" levels. The Handle is left unset.
//
// The role is bit (levels-1-l) of self, so the leaf level uses the lowest
// bit. The lock within the level is self with the bits below that level
// shifted out.
func at(self, levels, l int) Step {
	role := lockcore.Role((self >> (levels - 1 - l)) & 1)
	group := self >> (levels - l)
	return Step{
		Level: l,
		Index: group + (1 << l) - 1,
		Role:  role,
	}
}

// Path returns the acquisition order for participant "self": leaf level
// first, root last. The Handle fields are left unset.
func path(self, levels int) []Step {
	out := make([]Step, 0, levels)
	for l := levels - 1; l >= 0; l-- {
		out = append(out, at(self, levels, l))
	}
	return out
}
