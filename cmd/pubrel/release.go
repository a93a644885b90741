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
	"path/filepath"

	"github.com/spf13/cobra"
)

func newReleaseCmd(a *app) *cobra.Command {
	patch := &patchOptions{}
	tools := &toolOptions{}
	login := &loginOptions{}
	publish := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "release [manifest]",
		Short: "Patch the version, log in and publish",
		Long:  `Runs patch-version, login and publish in order, stopping at the first failure.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Manifest
			if len(args) == 1 {
				path = args[0]
			}
			if publish.dir == "" {
				publish.dir = filepath.Dir(path)
			}
			if err := a.patchVersion(path, patch); err != nil {
				return err
			}
			if err := a.login(cmd.Context(), tools, login); err != nil {
				return err
			}
			return a.publish(cmd.Context(), tools, publish)
		},
	}
	addPatchFlags(cmd, patch)
	addToolFlags(cmd, tools)
	addLoginFlags(cmd, login)
	addPublishFlags(cmd, publish)
	return cmd
}
