package lockcore

import "strconv"

// Handle is an opaque identifier for an allocated lock slot.
//
// Handles are only meaningful to the pool that returned them.
type Handle int

// String implements [fmt.Stringer].
func (h Handle) String() string {
	return "lock#" + strconv.Itoa(int(h))
}

// Role is one of the two identities contending for a single Peterson lock.
type Role int

// The two roles.
const (
	Role0 Role = 0
	Role1 Role = 1
)

// Valid reports whether the Role is 0 or 1.
func (r Role) Valid() bool {
	return r == Role0 || r == Role1
}

// Other returns the opposing role. It is only meaningful for valid roles.
func (r Role) Other() Role {
	return 1 - r
}
