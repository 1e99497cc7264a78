package slicer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sunxfancy/cpp-slicer/pkg/frontend"
)

// FileFunctions lists the functions one file defines. Err is set instead
// when the file could not be read or parsed.
type FileFunctions struct {
	Path      string
	Functions []string
	Err       error
}

// Inventory parses every path concurrently and lists its functions. A file
// that fails to parse is reported in its entry and does not stop the others;
// only cancellation of ctx fails the whole call.
func (e *Engine) Inventory(ctx context.Context, paths []string) ([]FileFunctions, error) {
	out := make([]FileFunctions, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallelism)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i].Path = path
			var unit *frontend.Unit
			unit, out[i].Err = e.Load(ctx, path)
			if out[i].Err == nil {
				out[i].Functions = unit.FunctionNames()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
