package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/code-payments/post-minter/pkg/config"
	"github.com/code-payments/post-minter/pkg/metrics"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "post-minter",
	Short: "Create Solana token sales from social media posts",
	Long: `post-minter assembles and submits the transaction that creates a token
sale, signing with a local Solana CLI keypair.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "configuration file path")
}

// setup loads the config, configures logging and, when a license key is set,
// attaches a New Relic application to the returned context.
func setup(ctx context.Context) (context.Context, *config.Config, func(), error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return ctx, nil, nil, err
	}

	var app *newrelic.Application
	if len(conf.NewRelicLicenseKey) > 0 {
		app, err = newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(conf.AppName),
			newrelic.ConfigLicense(conf.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			return ctx, nil, nil, errors.Wrap(err, "error connecting to new relic")
		}
	}

	configureLogger(conf, app)

	ctx = metrics.NewContext(ctx, app)
	shutdown := func() {}
	if app != nil {
		shutdown = func() { app.Shutdown(conf.RPCTimeout) }
	}
	return ctx, conf, shutdown, nil
}

func configureLogger(conf *config.Config, app *newrelic.Application) {
	if app != nil {
		logrus.SetFormatter(metrics.NewCustomNewRelicLogFormatter(app, &logrus.JSONFormatter{}))
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(strings.ToLower(conf.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", conf.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	// stdout carries command output
	logrus.SetOutput(os.Stderr)
}
