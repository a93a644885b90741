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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dartci/pubrel/internal/manifest"
)

type patchOptions struct {
	key     string
	version string
	strict  bool
	verify  bool
}

func newPatchVersionCmd(a *app) *cobra.Command {
	opts := &patchOptions{}
	cmd := &cobra.Command{
		Use:   "patch-version [manifest]",
		Short: "Write the release version into the manifest",
		Long: `Replaces the first line of the manifest containing the key with '<key>: "<version>"'.
A leading "v" is stripped from the version. The version defaults to $VERSION, then v0.0.0.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return a.patchVersion(path, opts)
		},
	}
	addPatchFlags(cmd, opts)
	return cmd
}

func addPatchFlags(cmd *cobra.Command, opts *patchOptions) {
	cmd.Flags().StringVar(&opts.key, "key", "", "key substring identifying the version line (default from config: version)")
	cmd.Flags().StringVar(&opts.version, "set-version", "", "version to write (default: $VERSION or v0.0.0)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "require the version to be valid semver")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "parse the manifest as YAML after patching and check the version field")
}

func (a *app) patchVersion(path string, opts *patchOptions) error {
	if path == "" {
		path = a.cfg.Manifest
	}
	key := opts.key
	if key == "" {
		key = a.cfg.Key
	}
	raw := opts.version
	if raw == "" {
		raw = a.cfg.Version()
	}

	value := manifest.NormalizeVersion(raw)
	if opts.strict {
		if err := manifest.ValidateSemver(value); err != nil {
			return err
		}
	}

	previous, err := manifest.ReadField(path, key)
	if err != nil {
		a.log.V(1).Info("could not read previous version", "path", path, "error", err.Error())
	}

	patcher := &manifest.Patcher{Path: path, Key: key, Log: a.log.WithName("manifest")}
	result, err := patcher.Patch(raw)
	if err != nil {
		return err
	}

	if opts.verify {
		got, err := manifest.ReadField(path, key)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		if got != result.Value {
			return fmt.Errorf("verification failed: %s is %q, want %q", key, got, result.Value)
		}
	}

	if result.Changed {
		a.printer.Success("Patched %s", result.Path)
	} else {
		a.printer.Success("%s already at %s", result.Path, result.Value)
	}
	a.printer.Field("Line", result.Index+1)
	if previous != "" {
		a.printer.Field("Previous", previous)
	}
	a.printer.Field("Version", result.Value)
	return nil
}
