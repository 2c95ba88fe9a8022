// Package goroutine launches background goroutines with panic recovery.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"formlens/internal/shared/logger"
)

// SafeGo runs fn in a goroutine. A panic is logged with its stack trace
// instead of taking down the process.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("goroutine panicked",
					"goroutine", name,
					"panic", fmt.Sprintf("%v", r),
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
