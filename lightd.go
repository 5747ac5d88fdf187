package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dagnet/lightd/config"
	"github.com/dagnet/lightd/dbaccess"
	"github.com/dagnet/lightd/lightdag"
	"github.com/dagnet/lightd/netadapter/rpcadapter"
	"github.com/dagnet/lightd/netsync"
	"github.com/dagnet/lightd/signal"
	"github.com/dagnet/lightd/util/panics"
	"github.com/dagnet/lightd/version"
)

// lightd wires the light client services together: the header DAG, the
// network adapter it syncs through, and the sync manager driving both.
type lightd struct {
	databaseContext *dbaccess.DatabaseContext
	syncManager     *netsync.SyncManager
	cancelSync      context.CancelFunc
}

// newLightd builds the services from the active configuration. The DAG is
// restored from the data directory if a previous run persisted headers.
func newLightd(cfg *config.Config) (*lightd, error) {
	databaseContext, err := dbaccess.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	dag, err := lightdag.New(&lightdag.Config{
		DAGParams:        cfg.NetParams(),
		DatabaseContext:  databaseContext,
		TimeSource:       lightdag.NewTimeSource(),
		CacheBudgetBytes: cfg.CacheBudgetBytes(),
	})
	if err != nil {
		databaseContext.Close()
		return nil, err
	}

	adapter, err := rpcadapter.New(&rpcadapter.Config{
		Seeds:          cfg.SeedAddresses(),
		Proxy:          cfg.Proxy,
		ProxyUser:      cfg.ProxyUser,
		ProxyPass:      cfg.ProxyPass,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		databaseContext.Close()
		return nil, err
	}

	syncManager, err := netsync.New(&netsync.Config{
		DAG:       dag,
		Adapter:   adapter,
		BatchSize: cfg.BatchSize,
		Quorum:    cfg.SyncQuorum,
	})
	if err != nil {
		databaseContext.Close()
		return nil, err
	}

	return &lightd{
		databaseContext: databaseContext,
		syncManager:     syncManager,
	}, nil
}

func (l *lightd) start() {
	log.Infof("Version %s", version.Version())

	ctx, cancel := context.WithCancel(context.Background())
	l.cancelSync = cancel
	l.syncManager.Start(ctx)
}

func (l *lightd) stop() {
	l.cancelSync()
	l.syncManager.Stop()

	status := l.syncManager.Status()
	log.Infof("Shutting down at height %d (%s)", status.LocalHeight, status.State)

	if err := l.databaseContext.Close(); err != nil {
		log.Errorf("Error closing the database: %s", err)
	}
}

// lightdMain is the real main function for lightd. The errors it returns
// have already been logged or printed.
func lightdMain() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer panics.HandlePanic(log, nil)

	interrupt := signal.InterruptListener()

	l, err := newLightd(cfg)
	if err != nil {
		log.Errorf("Unable to start lightd: %+v", err)
		return err
	}

	l.start()
	defer l.stop()

	<-interrupt
	return nil
}
