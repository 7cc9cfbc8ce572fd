/*
Composes one of the campus map scene variants and materializes the
feature-driven meshes of its pipelines. Toggle commands are read from
standard input.
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/campusmap/campus"
	"github.com/spaghettifunk/campusmap/engine"
	"github.com/spaghettifunk/campusmap/engine/core"
)

func main() {
	cfg, err := engine.LoadApplicationConfig()
	if err != nil {
		core.LogFatal("%s", err)
	}
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	cg, err := campus.NewCampusGame(cfg)
	if err != nil {
		core.LogFatal("%s", err)
	}

	var opts []engine.Option
	if cfg.Interactive {
		opts = append(opts, engine.WithInput(os.Stdin))
	}
	e, err := engine.New(cg.Game, opts...)
	if err != nil {
		core.LogFatal("%s", err)
	}

	// capture sigterm and other system calls
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	if err := e.Initialize(ctx); err != nil {
		_ = e.Shutdown()
		core.LogFatal("%s", err)
	}

	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}
	if runErr != nil {
		core.LogFatal("%s", runErr)
	}
}
