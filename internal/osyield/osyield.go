// Package osyield provides a [pool.Yielder] that gives up the calling
// thread's time slice to the operating system scheduler, rather than just the
// goroutine's turn on its P.
//
// This is closer to the behavior of a kernel-level spinning waiter and is
// mostly useful when comparing against [runtime.Gosched] under contention.
//
// [pool.Yielder]: https://pkg.go.dev/github.com/quay/lockcore/pool#Yielder
package osyield
