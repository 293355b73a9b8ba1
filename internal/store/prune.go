package store

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const pruneTimeout = time.Minute

// Pruner deletes expired enrichment records on a cron schedule.
type Pruner struct {
	cron *cron.Cron
}

// StartPruner schedules DeleteExpiredEnrichment on spec, a standard 5-field
// cron expression or descriptor such as "@every 6h".
func StartPruner(st Store, spec string) (*Pruner, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { pruneOnce(st) }); err != nil {
		return nil, eris.Wrapf(err, "store: invalid prune schedule %q", spec)
	}
	c.Start()
	zap.L().Info("store: enrichment cache pruner started", zap.String("schedule", spec))
	return &Pruner{cron: c}, nil
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}

func pruneOnce(st Store) {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	n, err := st.DeleteExpiredEnrichment(ctx)
	if err != nil {
		zap.L().Warn("store: prune enrichment cache failed", zap.Error(err))
		return
	}
	zap.L().Info("store: pruned enrichment cache", zap.Int("deleted", n))
}
