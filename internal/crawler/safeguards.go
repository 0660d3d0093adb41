package crawler

import (
	"fmt"
	"runtime/debug"

	"github.com/BenjaminSRussell/odc_harvest/internal/faults"
)

// recoverTask must be deferred directly by a worker goroutine. A panic while
// harvesting one page is logged and counted; the page stays unrecorded.
func (c *Crawler) recoverTask(task Task) {
	r := recover()
	if r == nil {
		return
	}

	c.panics.Add(1)
	c.log.Error("Recovered panic while processing page",
		"url", task.URL,
		"task", task.Kind.String(),
		"fault_kind", faults.KindPanic,
		"error", fmt.Sprintf("%v", r),
		"stack", string(debug.Stack()),
	)
}
