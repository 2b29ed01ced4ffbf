// Package lockcore holds the types shared by the lock pool and the tournament
// tree: lock [Handle] values, Peterson [Role] values, and the [Error] domain
// type.
//
// The [github.com/quay/lockcore/pool] package manages a fixed-capacity table
// of two-party Peterson locks. The [github.com/quay/lockcore/tournament]
// package composes those locks into a binary tree that provides mutual
// exclusion between up to 16 participants.
package lockcore
