//go:build !linux

package osyield

import "runtime"

// Yield calls [runtime.Gosched]; there's no portable thread yield on this
// platform.
func Yield() {
	runtime.Gosched()
}
