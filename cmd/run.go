package cmd

import (
	"fmt"
	"log/slog"

	"github.com/abhisek/learntrack/internal/audit"
	"github.com/abhisek/learntrack/internal/catalog"
	"github.com/abhisek/learntrack/internal/progress"
	"github.com/abhisek/learntrack/internal/rollup"
	"github.com/abhisek/learntrack/internal/store"
)

// deps holds everything a command needs to run progress operations.
type deps struct {
	store     *store.Store
	catalog   *catalog.Catalog
	service   *progress.Service
	publisher *audit.Publisher
}

// Close releases the publisher and the store.
func (d *deps) Close() {
	if d.publisher != nil {
		if err := d.publisher.Close(); err != nil {
			slog.Warn("close publisher", "err", err)
		}
	}
	d.store.Close()
}

// openDeps opens the store, loads the catalog and builds the service. Audit
// events always go to the store; with publish set they are also sent to the
// configured broker.
func openDeps(publish bool) (*deps, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	st, err := openStore()
	if err != nil {
		return nil, err
	}

	d := &deps{store: st, catalog: cat}
	sinks := audit.Multi{audit.NewStoreSink(st.AuditRepo())}
	if publish {
		pub, err := audit.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connect publisher: %w", err)
		}
		d.publisher = pub
		if pub.Enabled() {
			sinks = append(sinks, pub)
		}
	}

	logger := slog.Default()
	repo := st.ProgressRepo()
	engine := rollup.NewEngine(repo, cat, nil)
	notifier := rollup.NewNotifier(engine, sinks, logger)
	d.service = progress.NewService(repo, cat, notifier,
		progress.WithPolicy(cfg.Policy()),
		progress.WithLogger(logger),
	)
	return d, nil
}
