package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/relplan/relplan/cli"
	"github.com/relplan/relplan/internal/errors"
	"github.com/relplan/relplan/pkg/log"
	"github.com/relplan/relplan/pkg/options"
)

// The main entrypoint for relplan
func main() {
	opts := options.NewReleaseOptions()
	logger := log.Default()

	defer errors.Recover(checkForErrorsAndExit(logger))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = log.ContextWithLogger(ctx, logger)

	err := cli.NewApp(opts).RunContext(ctx, os.Args)

	cancel()
	checkForErrorsAndExit(logger)(err)
}

// If there is an error, display it in the console and exit with the exit code of its class. Otherwise, exit 0.
func checkForErrorsAndExit(logger log.Logger) func(error) {
	return func(err error) {
		if err == nil {
			os.Exit(errors.ExitCodeOK)
		}

		if errors.IsContextCanceled(err) {
			logger.Warn("Interrupted before the plan completed")
			os.Exit(errors.ExitCode(err))
		}

		logger.WithField("kind", string(errors.KindOf(err))).Error(err.Error())

		if errStack := errors.ErrorStack(err); errStack != "" {
			logger.Trace(errStack)
		}

		os.Exit(errors.ExitCode(err))
	}
}
