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

// toolOptions are shared by commands that drive gcloud or dart.
type toolOptions struct {
	gcloud   string
	dart     string
	audience string
	registry string
}

type loginOptions struct {
	credentialsEnv string
	keyDir         string
}

func addToolFlags(cmd *cobra.Command, o *toolOptions) {
	cmd.Flags().StringVar(&o.gcloud, "gcloud", "", "gcloud binary (env: PUBREL_GCLOUD)")
	cmd.Flags().StringVar(&o.dart, "dart", "", "dart binary (env: PUBREL_DART)")
	cmd.Flags().StringVar(&o.audience, "audience", "", "identity token audience (default: "+pub.DefaultAudience+")")
	cmd.Flags().StringVar(&o.registry, "registry", "", "package registry URL (env: PUBREL_REGISTRY, default: "+pub.DefaultRegistry+")")
}

func addLoginFlags(cmd *cobra.Command, o *loginOptions) {
	cmd.Flags().StringVar(&o.credentialsEnv, "credentials-env", "", "environment variable holding the service account key JSON (default: PUB_JSON)")
	cmd.Flags().StringVar(&o.keyDir, "key-dir", "", "directory for the temporary key file (env: PUBREL_KEY_DIR, default: system temp dir)")
}

func newLoginCmd(a *app) *cobra.Command {
	tools := &toolOptions{}
	opts := &loginOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate dart pub with a Google service account",
		Long: `Activates the service account from $PUB_JSON with gcloud, then registers an identity
token for the registry with 'dart pub token add'. The key file is removed afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.login(cmd.Context(), tools, opts)
		},
	}
	addToolFlags(cmd, tools)
	addLoginFlags(cmd, opts)
	return cmd
}

func (a *app) resolveTools(o *toolOptions) *toolOptions {
	resolved := *o
	if resolved.gcloud == "" {
		resolved.gcloud = a.cfg.Gcloud
	}
	if resolved.dart == "" {
		resolved.dart = a.cfg.Dart
	}
	if resolved.audience == "" {
		resolved.audience = a.cfg.Audience
	}
	if resolved.registry == "" {
		resolved.registry = a.cfg.Registry
	}
	return &resolved
}

func (a *app) login(ctx context.Context, tools *toolOptions, opts *loginOptions) error {
	cfg := *a.cfg
	if opts.credentialsEnv != "" {
		cfg.CredentialsEnv = opts.credentialsEnv
	}
	blob, err := cfg.Credentials()
	if err != nil {
		return err
	}
	keyDir := opts.keyDir
	if keyDir == "" {
		keyDir = cfg.KeyDir
	}

	resolved := a.resolveTools(tools)
	if err := a.pubClient(resolved).Login(ctx, blob, keyDir); err != nil {
		return err
	}
	a.printer.Success("Authenticated dart pub")
	a.printer.Field("Registry", resolved.registry)
	return nil
}
