// Command collator-sentinel is the daemon entrypoint: four subcommands
// (watch, check, status, show-config) built on the same app/Before/After
// scaffold as _examples/jeongkyun-oh-klaytn/cmd/kcn/main.go, generalized
// from a full node's flag set to this daemon's much smaller one.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"

	"github.com/paritytech/collator-sentinel/chain"
	"github.com/paritytech/collator-sentinel/internal/config"
	"github.com/paritytech/collator-sentinel/internal/log"
	"github.com/paritytech/collator-sentinel/supervisor"
	cli "gopkg.in/urfave/cli.v1"
)

var logger = log.NewModuleLogger(log.ModuleCLI)

var logLevelFlag = cli.StringFlag{
	Name:  "log-level",
	Usage: "log verbosity: crit, error, warn, info, debug, trace",
	Value: "info",
}

var app = newApp()

func newApp() *cli.App {
	a := cli.NewApp()
	a.Name = "collator-sentinel"
	a.Usage = "monitors and re-registers system chain collators"
	a.Flags = []cli.Flag{logLevelFlag}
	a.Commands = []cli.Command{watchCommand, checkCommand, statusCommand, showConfigCommand}
	sort.Sort(cli.CommandsByName(a.Commands))
	a.Before = func(ctx *cli.Context) error {
		runtime.GOMAXPROCS(runtime.NumCPU())
		lvl, err := log.ParseLvl(ctx.GlobalString(logLevelFlag.Name))
		if err != nil {
			return err
		}
		log.SetLevel(lvl)
		return nil
	}
	return a
}

var watchCommand = cli.Command{
	Name:   "watch",
	Usage:  "run the daemon: track every chain and reconcile on an interval",
	Action: runWatch,
}

var checkCommand = cli.Command{
	Name:   "check",
	Usage:  "run one reconciliation pass over every chain and exit",
	Action: runCheck,
}

var statusCommand = cli.Command{
	Name:   "status",
	Usage:  "print each configured chain's current collator status",
	Action: runStatus,
}

var showConfigCommand = cli.Command{
	Name:   "show-config",
	Usage:  "print the resolved configuration (secrets redacted)",
	Action: runShowConfig,
}

func runWatch(*cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sup, err := supervisor.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		logger.Info("got interrupt, shutting down")
		sup.Shutdown()
		cancel()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				logger.Warn("already shutting down, interrupt more to force exit", "times", i-1)
			} else {
				os.Exit(1)
			}
		}
	}()

	sup.Run(ctx)
	return nil
}

func runCheck(*cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sup, err := supervisor.New(cfg)
	if err != nil {
		return err
	}
	return sup.RunOnce(context.Background())
}

func runStatus(*cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sup, err := supervisor.New(cfg)
	if err != nil {
		return err
	}
	return sup.PrintStatus(context.Background(), os.Stdout)
}

func runShowConfig(*cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "collator address (network A):", redactIfEmpty(cfg.CollatorAddressA))
	fmt.Fprintln(os.Stdout, "collator address (network B):", redactIfEmpty(cfg.CollatorAddressB))
	fmt.Fprintln(os.Stdout, "check interval (s):", cfg.CheckIntervalSecs)
	fmt.Fprintln(os.Stdout, "summary interval (s):", cfg.SummaryIntervalSecs)
	fmt.Fprintln(os.Stdout, "alert transport:", alertTransportName(cfg))
	for _, c := range chain.AllChains {
		for _, n := range []chain.Network{chain.NetworkA, chain.NetworkB} {
			if !chain.Valid(n, c) {
				continue
			}
			endpoints, err := chain.DefaultEndpoints(n, c)
			if err != nil {
				fmt.Fprintf(os.Stdout, "  %s: %v\n", chain.DisplayName(n, c), err)
				continue
			}
			if ov, ok := cfg.Override(n, c); ok {
				endpoints = chain.MergeEndpoints(endpoints, ov.Endpoints)
			}
			fmt.Fprintf(os.Stdout, "  %s: enabled=%v endpoints=%v\n",
				chain.DisplayName(n, c), cfg.Enabled(n, c), endpoints)
		}
	}
	return nil
}

func alertTransportName(cfg *config.AppConfig) string {
	if cfg.AlertWebhookURL != "" {
		return "webhook"
	}
	return "bot-token"
}

func redactIfEmpty(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
