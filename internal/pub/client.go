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

// Package pub authenticates the dart pub client against a package registry and publishes packages.
package pub

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/dartci/pubrel/internal/credentials"
	"github.com/dartci/pubrel/internal/toolexec"
)

const (
	// DefaultRegistry is the hosted pub registry.
	DefaultRegistry = "https://pub.dev"
	// DefaultAudience is the identity token audience pub.dev accepts.
	DefaultAudience = "https://pub.dev"
)

// Client drives gcloud and dart for a release.
type Client struct {
	Runner   toolexec.Runner
	Gcloud   string
	Dart     string
	Audience string
	Registry string
	Log      logr.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithGcloud overrides the gcloud binary.
func WithGcloud(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.Gcloud = path
		}
	}
}

// WithDart overrides the dart binary.
func WithDart(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.Dart = path
		}
	}
}

// WithAudience overrides the identity token audience.
func WithAudience(audience string) Option {
	return func(c *Client) {
		if audience != "" {
			c.Audience = audience
		}
	}
}

// WithRegistry overrides the registry the token is registered for.
func WithRegistry(registry string) Option {
	return func(c *Client) {
		if registry != "" {
			c.Registry = strings.TrimSuffix(registry, "/")
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(c *Client) { c.Log = log }
}

// New creates a Client using runner to execute tools.
func New(runner toolexec.Runner, opts ...Option) *Client {
	c := &Client{
		Runner:   runner,
		Gcloud:   "gcloud",
		Dart:     "dart",
		Audience: DefaultAudience,
		Registry: DefaultRegistry,
		Log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ActivateServiceAccount makes the key at keyPath the active gcloud account.
func (c *Client) ActivateServiceAccount(ctx context.Context, keyPath string) error {
	cmd := toolexec.Command{
		Name: c.Gcloud,
		Args: []string{"auth", "activate-service-account", "--key-file=" + keyPath},
	}
	if err := c.Runner.Run(ctx, cmd, nil); err != nil {
		return fmt.Errorf("failed to activate service account: %w", err)
	}
	return nil
}

// AddToken registers token with dart for the configured registry. The token is passed on
// stdin so it never appears in the process list.
func (c *Client) AddToken(ctx context.Context, token string) error {
	cmd := toolexec.Command{
		Name: c.Dart,
		Args: []string{"pub", "token", "add", c.Registry},
	}
	if err := c.Runner.Run(ctx, cmd, strings.NewReader(token+"\n")); err != nil {
		return fmt.Errorf("failed to add pub token: %w", err)
	}
	return nil
}

// Login activates the service account in blob and registers a fresh identity token with
// dart. The key file is written to keyDir and removed before Login returns.
func (c *Client) Login(ctx context.Context, blob, keyDir string) (err error) {
	key, err := credentials.Decode(blob)
	if err != nil {
		return err
	}
	keyFile, err := credentials.WriteKeyFile(keyDir, key)
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := keyFile.Remove(); rmErr != nil {
			if err == nil {
				err = rmErr
			} else {
				c.Log.Error(rmErr, "failed to clean up key file", "path", keyFile.Path)
			}
		}
	}()

	c.Log.Info("activating service account", "account", key.ClientEmail, "project", key.ProjectID)
	if err := c.ActivateServiceAccount(ctx, keyFile.Path); err != nil {
		return err
	}

	token, err := c.IdentityToken(ctx)
	if err != nil {
		return err
	}
	if err := c.AddToken(ctx, token); err != nil {
		return err
	}
	c.Log.Info("registered pub token", "registry", c.Registry)
	return nil
}
