package loader

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/banshee-data/collision.report/internal/monitoring"
)

// Schedule registers a cron job that loads any new yearly files into sink.
// spec is a standard cron expression or descriptor such as "@every 10m".
func (l *Loader) Schedule(ctx context.Context, c *cron.Cron, spec string, sink Sink) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		n, err := l.Load(ctx, sink)
		if err != nil {
			monitoring.Logf("loader: refresh finished with errors: %v", err)
		}
		if n > 0 {
			monitoring.Logf("loader: refresh applied %d new files", n)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return id, nil
}
