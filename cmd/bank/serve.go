package main

import (
	"context"
	"flag"
	"os"
	"time"

	"bank/internal/ops"
	"bank/internal/risk"
	"bank/internal/server"

	"github.com/google/subcommands"
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

type serveCmd struct {
	config       string
	paper        bool
	reloadPeriod time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the trading REST API" }
func (*serveCmd) Usage() string {
	return `bank serve [-config <file>] [-paper] [-config-reload-interval <duration>]

  Serves the order, depot, stock search and bank volume endpoints until
  SIGINT or SIGTERM. The risk section of the config file is reloaded when
  the file changes.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", "", "Path to a JSON or YAML config file")
	f.BoolVar(&c.paper, "paper", false, "Trade against the built-in paper oracle")
	f.DurationVar(&c.reloadPeriod, "config-reload-interval", 2*time.Second, "Risk config reload interval (0=disable)")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.paper {
		_ = os.Setenv(ops.EnvPrefix+"_ORACLE_PAPER", "true")
	}
	cfg, err := ops.Load(c.config)
	if err != nil {
		logs.Errorf("load config, err: %+v", err)
		return subcommands.ExitUsageError
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "bank",
			ServerAddress:   cfg.Profiling.ServerAddress,
			Logger:          pyroscopeLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			logs.Errorf("start pyroscope, err: %+v", err)
			return subcommands.ExitFailure
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		logs.Errorf("build app, err: %+v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if c.config != "" && c.reloadPeriod > 0 {
		go watchRisk(ctx, c.config, c.reloadPeriod, a.risk)
	}

	if err := server.New(cfg.Server, a.service, nil).Run(ctx); err != nil {
		logs.Errorf("serve, err: %+v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// watchRisk polls the config file and swaps the risk limits when it changes.
func watchRisk(ctx context.Context, path string, interval time.Duration, engine *risk.Engine) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastMod time.Time
	if info, err := os.Stat(path); err == nil {
		lastMod = info.ModTime()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				logs.Warnf("config stat failed, err: %+v", err)
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			cfg, err := ops.LoadRisk(path)
			if err != nil {
				logs.Errorf("risk config reload failed, err: %+v", err)
				continue
			}
			engine.Update(cfg)
			lastMod = info.ModTime()
			logs.Infof("risk config reloaded from %s, version: %d, kill switch: %t", path, cfg.Version, cfg.KillSwitch)
		}
	}
}

type pyroscopeLogger struct{}

func (pyroscopeLogger) Infof(format string, args ...interface{})  { logs.Debugf(format, args...) }
func (pyroscopeLogger) Debugf(format string, args ...interface{}) { logs.Debugf(format, args...) }
func (pyroscopeLogger) Errorf(format string, args ...interface{}) { logs.Errorf(format, args...) }
