package pool

import "runtime"

// Yielder gives up the caller's current turn of execution so that some other
// ready goroutine may run. It returns with no guaranteed minimum delay.
type Yielder func()

// Gosched is the default Yielder.
var Gosched Yielder = runtime.Gosched
