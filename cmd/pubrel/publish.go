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

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dartci/pubrel/internal/pub"
)

type publishOptions struct {
	dir    string
	dryRun bool
}

func newPublishCmd(a *app) *cobra.Command {
	tools := &toolOptions{}
	opts := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the package with dart pub",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.publish(cmd.Context(), tools, opts)
		},
	}
	addToolFlags(cmd, tools)
	addPublishFlags(cmd, opts)
	return cmd
}

func addPublishFlags(cmd *cobra.Command, o *publishOptions) {
	cmd.Flags().StringVar(&o.dir, "dir", "", "package directory (default: current directory)")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "validate the package without uploading")
}

func (a *app) publish(ctx context.Context, tools *toolOptions, opts *publishOptions) error {
	resolved := a.resolveTools(tools)
	err := a.pubClient(resolved).Publish(ctx, pub.PublishOptions{Dir: opts.dir, DryRun: opts.dryRun})
	if err != nil {
		return err
	}
	if opts.dryRun {
		a.printer.Success("Dry run passed")
	} else {
		a.printer.Success("Published package")
	}
	a.printer.Field("Registry", resolved.registry)
	return nil
}
