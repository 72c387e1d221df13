package main

import (
	"context"

	"bank/internal/bank"
	"bank/internal/chaos"
	"bank/internal/customer"
	"bank/internal/idempotency"
	"bank/internal/ledger"
	"bank/internal/model"
	"bank/internal/obs"
	"bank/internal/ops"
	"bank/internal/quote"
	"bank/internal/quote/oracle"
	"bank/internal/repository"
	"bank/internal/risk"
	"bank/internal/trade"
	"bank/pkg/conn"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// app holds the wired engine of one process.
type app struct {
	service *bank.Service
	risk    *risk.Engine
	paper   *oracle.Paper
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logs.Warnf("close resource, err: %+v", err)
		}
	}
}

func buildApp(ctx context.Context, cfg ops.Loaded) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	metrics := obs.NewMetrics()

	var o oracle.Oracle
	if cfg.Oracle.Paper {
		a.paper = oracle.NewPaper(oracle.DefaultListings()...)
		o = a.paper
		logs.Warnf("oracle: paper trading enabled, no order reaches the market")
	} else {
		client, err := oracle.NewHTTPClient(cfg.Oracle.HTTP)
		if err != nil {
			return nil, errors.Wrap(err, "new oracle client")
		}
		o = client
		logs.Infof("oracle: %s as %s", cfg.Oracle.HTTP.Endpoint, cfg.Oracle.HTTP.Username)
	}
	if cfg.Oracle.Chaos.Enabled() {
		injector, err := chaos.Wrap(o, cfg.Oracle.Chaos)
		if err != nil {
			return nil, errors.Wrap(err, "wrap oracle with chaos")
		}
		o = injector
		logs.Warnf("oracle: chaos enabled, fail rate %.2f, auth fail rate %.2f, max delay %s",
			cfg.Oracle.Chaos.FailRate, cfg.Oracle.Chaos.AuthFailRate, cfg.Oracle.Chaos.MaxDelay)
	}
	gateway := quote.NewGateway(o, cfg.Oracle.Quote, metrics)

	var (
		volume    ledger.VolumeLedger
		depot     ledger.DepotLedger
		customers customer.Directory
	)
	if cfg.Postgres.Enabled {
		client, err := conn.New(ctx, cfg.Postgres.Option)
		if err != nil {
			return nil, errors.Wrap(err, "connect postgres").With("dsn", cfg.Postgres.Option.Redacted())
		}
		a.closers = append(a.closers, client.Close)

		volumeLedger := repository.NewVolumeLedger(client.DB())
		v, err := volumeLedger.Init(ctx, cfg.Bank.InitialVolume, cfg.Bank.Currency)
		if err != nil {
			return nil, errors.Wrap(err, "init bank volume")
		}
		logs.Infof("ledger: postgres %s, bank volume %s", cfg.Postgres.Option.Redacted(), model.FormatAmount(v.Available, v.Currency))

		volume = volumeLedger
		depot = repository.NewDepotLedger(client.DB())
		customers = repository.NewCustomerDirectory(client.DB())
	} else {
		dir := customer.NewMemory()
		for _, number := range cfg.Bank.Customers {
			if _, err := dir.Add(model.Customer{Number: number}); err != nil {
				return nil, errors.Wrapf(err, "seed customer %s", number)
			}
		}
		volume = ledger.NewMemoryVolume(cfg.Bank.InitialVolume, cfg.Bank.Currency)
		depot = ledger.NewMemoryDepot()
		customers = dir
		logs.Warnf("ledger: in memory, %d customers, state is lost on exit", len(cfg.Bank.Customers))
	}

	var store idempotency.Store
	if cfg.Redis.Enabled {
		rdb, err := conn.NewRedis(ctx, cfg.Redis.Option)
		if err != nil {
			return nil, errors.Wrap(err, "connect redis")
		}
		a.closers = append(a.closers, rdb.Close)
		store = idempotency.NewRedis(rdb, cfg.Redis.IdempotencyTTL)
	} else {
		store = idempotency.NewMemory(cfg.Redis.IdempotencyTTL)
	}

	a.risk = risk.NewEngine(cfg.Risk)
	coordinator, err := trade.NewCoordinator(trade.Config{
		Gateway:     gateway,
		Volume:      volume,
		Depot:       depot,
		Customers:   customers,
		Risk:        a.risk,
		Idempotency: store,
		Metrics:     metrics,
		Currency:    cfg.Bank.Currency,
	})
	if err != nil {
		return nil, err
	}

	a.service = bank.NewService(coordinator, gateway, volume, depot, customers, metrics, cfg.Bank.Currency)
	return a, nil
}
