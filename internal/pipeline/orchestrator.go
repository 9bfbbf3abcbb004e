package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Orchestrator manages the pipeline goroutines: the ledger event indexer and
// the journal archiver. The archiver is optional; without object storage
// configured only the indexer runs.
type Orchestrator struct {
	indexer  *Indexer
	archiver *JournalArchiver
	logger   *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. Pass a nil archiver to run
// without cold-storage export.
func NewOrchestrator(indexer *Indexer, archiver *JournalArchiver, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		indexer:  indexer,
		archiver: archiver,
		logger:   logger,
	}
}

// Run starts the sub-pipelines as concurrent goroutines using an errgroup.
// Each goroutine respects ctx cancellation. If any goroutine returns a
// non-context error, the errgroup cancels the shared context and Run returns
// that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o.logger.Info("starting indexer loop")
		err := o.indexer.RunLoop(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("indexer: %w", err)
	})

	if o.archiver != nil {
		g.Go(func() error {
			o.logger.Info("starting journal archiver")
			err := o.archiver.RunDaily(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	err := g.Wait()
	if err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
