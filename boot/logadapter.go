// https://github.com/milkmanabi/mimiboot
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boot

import (
	"context"

	golog "github.com/dsoprea/go-logging"
)

// GoLoggingAdapter adapts github.com/dsoprea/go-logging's named logger to
// the boot.Logger interface, the way go-exfat wraps log.NewLogger(...) per
// package rather than calling the package-level functions directly.
// go-exfat's retrieved call sites only exercise log.Errorf/log.Wrap/
// log.PanicIf (inside panic-recovery blocks); Debugf/Infof here are used
// per the library's documented per-logger API.
type GoLoggingAdapter struct {
	ctx context.Context
	log *golog.Logger
}

// NewGoLoggingAdapter returns a Logger backed by a named go-logging logger.
func NewGoLoggingAdapter(name string) *GoLoggingAdapter {
	ctx := context.Background()
	return &GoLoggingAdapter{ctx: ctx, log: golog.NewLogger(ctx, name)}
}

func (a *GoLoggingAdapter) Debugf(format string, args ...interface{}) {
	a.log.Debugf(a.ctx, format, args...)
}

func (a *GoLoggingAdapter) Infof(format string, args ...interface{}) {
	a.log.Infof(a.ctx, format, args...)
}

func (a *GoLoggingAdapter) Errorf(format string, args ...interface{}) {
	a.log.Errorf(a.ctx, format, args...)
}
