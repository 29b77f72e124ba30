package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/mcclellann/alfaledger/pkg/ledger"
	"github.com/mcclellann/alfaledger/pkg/report"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type serveCmd struct{}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "runs the loan ledger HTTP API" }
func (*serveCmd) Usage() string {
	return `serve

Starts the HTTP API on $PORT and logs a portfolio snapshot on $SNAPSHOT_SCHEDULE.
`
}
func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, a); err != nil {
		a.log.WithError(err).Error("Server stopped")
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func serve(ctx context.Context, a *app) error {
	server := NewServer(a.storage, a.ledger, a.log, a.cfg.Currency)
	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      server.routes(),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
	}

	scheduler := cron.New(cron.WithLocation(a.cfg.Location()))
	if a.cfg.SnapshotSchedule != "" {
		_, err := scheduler.AddFunc(a.cfg.SnapshotSchedule, func() {
			logSnapshot(ctx, a.ledger, a.log, a.cfg.Currency)
		})
		if err != nil {
			return fmt.Errorf("invalid snapshot schedule: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Infof("Server starting on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		<-scheduler.Stop().Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.log.Info("Shutting down server")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// logSnapshot writes the day's portfolio figures to the log.
func logSnapshot(ctx context.Context, l *ledger.Ledger, log *logrus.Logger, currency string) {
	p, err := l.Portfolio(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to compute portfolio snapshot")
		return
	}
	log.WithFields(logrus.Fields{
		"active_loans":        p.ActiveCount,
		"closed_loans":        p.ClosedCount,
		"disbursed_active":    report.FormatMoney(p.TotalDisbursedActive, currency),
		"outstanding":         report.FormatMoney(p.TotalOutstanding, currency),
		"today_collection":    report.FormatMoney(p.TodayCollectionTotal, currency),
		"today_payments":      p.TodayCollectionCount,
		"interest_active":     report.FormatMoney(p.TotalInterestActive, currency),
		"recovered_principal": report.FormatMoney(p.RecoveredPrincipal, currency),
	}).Info("Portfolio snapshot")
}
