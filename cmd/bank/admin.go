package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bank/internal/model"
	"bank/internal/ops"
	"bank/internal/repository"
	"bank/pkg/conn"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"gorm.io/gorm"
)

// withDB loads the config and opens postgres for the admin commands.
func withDB(ctx context.Context, configPath string, fn func(cfg ops.Loaded, db *gorm.DB) error) subcommands.ExitStatus {
	cfg, err := ops.Load(configPath)
	if err != nil {
		logs.Errorf("load config, err: %+v", err)
		return subcommands.ExitUsageError
	}
	if !cfg.Postgres.Enabled {
		fmt.Fprintln(os.Stderr, "postgres is disabled, set postgres.enabled or BANK_POSTGRES_ENABLED=true")
		return subcommands.ExitUsageError
	}

	client, err := conn.New(ctx, cfg.Postgres.Option)
	if err != nil {
		logs.Errorf("connect postgres %s, err: %+v", cfg.Postgres.Option.Redacted(), err)
		return subcommands.ExitFailure
	}
	defer client.Close()

	if err := fn(cfg, client.DB()); err != nil {
		logs.Errorf("%+v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type migrateCmd struct {
	config string
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or update the database schema and the bank volume" }
func (*migrateCmd) Usage() string {
	return `bank migrate [-config <file>]

  Creates the bank_volume, depot_position and customer tables and
  initializes the bank volume from bank.initialVolume on first run.
`
}

func (c *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "Path to a JSON or YAML config file")
}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withDB(ctx, c.config, func(cfg ops.Loaded, db *gorm.DB) error {
		if err := repository.Migrate(ctx, db); err != nil {
			return err
		}
		v, err := repository.NewVolumeLedger(db).Init(ctx, cfg.Bank.InitialVolume, cfg.Bank.Currency)
		if err != nil {
			return err
		}
		fmt.Printf("schema up to date, bank volume %s\n", model.FormatAmount(v.Available, v.Currency))
		return nil
	})
}

type volumeCmd struct {
	config string
	credit string
}

func (*volumeCmd) Name() string     { return "volume" }
func (*volumeCmd) Synopsis() string { return "show or top up the bank volume" }
func (*volumeCmd) Usage() string {
	return `bank volume [-config <file>] [-credit <amount>]

  Prints the available and initial bank volume. With -credit the amount is
  added to the available volume first.
`
}

func (c *volumeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "Path to a JSON or YAML config file")
	f.StringVar(&c.credit, "credit", "", "Amount to add to the bank volume")
}

func (c *volumeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withDB(ctx, c.config, func(_ ops.Loaded, db *gorm.DB) error {
		l := repository.NewVolumeLedger(db)
		if c.credit != "" {
			amount, err := decimal.NewFromString(c.credit)
			if err != nil {
				return errors.Errorf("-credit %q is not a number", c.credit)
			}
			if err := l.Credit(ctx, amount); err != nil {
				return err
			}
		}

		v, err := l.Volume(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("available %s\ninitial   %s\n", model.FormatAmount(v.Available, v.Currency), model.FormatAmount(v.Initial, v.Currency))
		return nil
	})
}

type customerCmd struct {
	config    string
	firstName string
	lastName  string
	email     string
}

func (*customerCmd) Name() string     { return "customer" }
func (*customerCmd) Synopsis() string { return "register a customer" }
func (*customerCmd) Usage() string {
	return `bank customer [-config <file>] [-first <name>] [-last <name>] [-email <email>] <number>

  Adds a customer to the directory so orders can be placed for it.
`
}

func (c *customerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "Path to a JSON or YAML config file")
	f.StringVar(&c.firstName, "first", "", "First name")
	f.StringVar(&c.lastName, "last", "", "Last name")
	f.StringVar(&c.email, "email", "", "Email address")
}

func (c *customerCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	return withDB(ctx, c.config, func(_ ops.Loaded, db *gorm.DB) error {
		created, err := repository.NewCustomerDirectory(db).Create(ctx, model.Customer{
			Number:    f.Arg(0),
			FirstName: c.firstName,
			LastName:  c.lastName,
			Email:     c.email,
		})
		if err != nil {
			return err
		}
		fmt.Printf("customer %s registered with id %d\n", created.Number, created.ID)
		return nil
	})
}
