package watcher

import (
	"context"

	"github.com/anchorhq/anchor/internal/logging"
)

// Applier receives debounced events translated into mutation calls. The
// daemon implements it over its reader-writer-guarded graph handle.
type Applier interface {
	// UpdateFile re-reads and re-extracts path into the graph.
	UpdateFile(ctx context.Context, path string) error
	// RemoveFile drops path's symbols from the graph.
	RemoveFile(ctx context.Context, path string) error
}

// Run drains events until the channel closes or ctx is cancelled, mapping
// created/modified to UpdateFile and deleted/renamed to RemoveFile. Errors
// are logged and skipped; the loop never stops on a bad file.
func Run(ctx context.Context, events <-chan Event, applier Applier, logf logging.Func) {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			var err error
			switch evt.Op {
			case Create, Write:
				err = applier.UpdateFile(ctx, evt.Path)
			case Remove, Rename:
				err = applier.RemoveFile(ctx, evt.Path)
			}
			if err != nil {
				logf("watcher: %s %s: %v", evt.Op, evt.Path, err)
			}
		}
	}
}
