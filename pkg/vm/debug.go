package vm

import (
	"fmt"
	"os"
)

// Debug gates the targeted fmt.Fprintf(os.Stderr, ...) diagnostics this
// package emits. Off by default; hosts that want a trace of every
// closure entered set it directly.
var Debug bool

// traceCall prints one line per closure call when Debug is set.
func traceCall(c *ClosureObj, depth int) {
	if !Debug {
		return
	}
	fmt.Fprintf(os.Stderr, "[vm] call depth=%d %s\n", depth, c.Fn.displayName())
}
