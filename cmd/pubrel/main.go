/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package main provides pubrel, a CI helper that stamps the release version into
// pubspec.yaml, authenticates dart pub with a service account and publishes the package.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/dartci/pubrel/cmd/pubrel/config"
	"github.com/dartci/pubrel/cmd/pubrel/ui"
	"github.com/dartci/pubrel/internal/pub"
	"github.com/dartci/pubrel/internal/toolexec"
)

var version = "dev"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg     *config.Config
	log     logr.Logger
	printer *ui.Printer
	runner  toolexec.Runner
}

type rootOptions struct {
	configPath string
	verbose    bool
	logOutput  io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, os.Args[1:], ui.NewPrinter(), nil)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit status.
func run(ctx context.Context, args []string, printer *ui.Printer, runner toolexec.Runner) int {
	cmd := newRootCmd(printer, runner)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		printer.Error(err)
		return 1
	}
	return 0
}

// newRootCmd builds the command tree. A nil runner means tools are executed for real.
func newRootCmd(printer *ui.Printer, runner toolexec.Runner) *cobra.Command {
	opts := &rootOptions{logOutput: os.Stderr}
	a := &app{printer: printer, runner: runner}

	rootCmd := &cobra.Command{
		Use:           "pubrel",
		Short:         "Release helper for Dart packages",
		Long:          `Stamps the release version into pubspec.yaml, authenticates dart pub with a Google service account and publishes the package.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init(opts)
		},
	}
	rootCmd.SetVersionTemplate("pubrel version: {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default: ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(
		newPatchVersionCmd(a),
		newLoginCmd(a),
		newPublishCmd(a),
		newReleaseCmd(a),
	)
	return rootCmd
}

func (a *app) init(opts *rootOptions) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(opts.logOutput, &slog.HandlerOptions{Level: level})
	a.log = logr.FromSlogHandler(handler)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	if a.runner == nil {
		a.runner = toolexec.NewExecRunner(a.log.WithName("exec"))
	}
	return nil
}

func (a *app) pubClient(o *toolOptions) *pub.Client {
	return pub.New(a.runner,
		pub.WithGcloud(o.gcloud),
		pub.WithDart(o.dart),
		pub.WithAudience(o.audience),
		pub.WithRegistry(o.registry),
		pub.WithLogger(a.log.WithName("pub")),
	)
}
