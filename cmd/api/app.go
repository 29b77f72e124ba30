package main

import (
	"fmt"

	"github.com/mcclellann/alfaledger/pkg/config"
	"github.com/mcclellann/alfaledger/pkg/events"
	"github.com/mcclellann/alfaledger/pkg/ledger"
	"github.com/mcclellann/alfaledger/pkg/store"
	"github.com/sirupsen/logrus"
)

// app bundles the long-lived dependencies every subcommand needs.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	storage   store.Storage
	publisher events.Publisher
	ledger    *ledger.Ledger
}

func openApp() (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := cfg.NewLogger()
	// Packages that log through the standard logger get the same setup.
	logrus.SetFormatter(log.Formatter)
	logrus.SetLevel(log.GetLevel())

	s, err := store.Open(cfg.DBDriver, cfg.DBConn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", cfg.DBDriver, err)
	}

	var pub events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect to broker: %w", err)
		}
		pub = p
	}

	l := ledger.NewLedger(s,
		ledger.WithLogger(log),
		ledger.WithPublisher(pub),
		ledger.WithLocation(cfg.Location()),
	)

	return &app{cfg: cfg, log: log, storage: s, publisher: pub, ledger: l}, nil
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close publisher")
	}
	if err := a.storage.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close store")
	}
}
