// Public domain.

package runner

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// safeGroup is an errgroup that turns a panicking goroutine into an error
// for the whole group.
type safeGroup struct {
	g   *errgroup.Group
	log logrus.FieldLogger
}

func newSafeGroup(ctx context.Context, log logrus.FieldLogger) (*safeGroup, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	return &safeGroup{g: g, log: log}, ctx
}

func (sg *safeGroup) Go(name string, fn func() error) {
	sg.g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				sg.log.WithFields(logrus.Fields{
					"goroutine": name,
					"stack":     string(debug.Stack()),
				}).Error("panic recovered")
				err = fmt.Errorf("%s: panic: %v", name, r)
			}
		}()
		return fn()
	})
}

func (sg *safeGroup) Wait() error { return sg.g.Wait() }
