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

package pub

import (
	"context"
	"fmt"

	"github.com/dartci/pubrel/internal/toolexec"
)

// PublishOptions controls dart pub publish.
type PublishOptions struct {
	// Dir is the package directory; empty means the current directory.
	Dir    string
	DryRun bool
}

// Publish uploads the package in opts.Dir. Without DryRun the upload is forced so it
// never waits for interactive confirmation.
func (c *Client) Publish(ctx context.Context, opts PublishOptions) error {
	args := []string{"pub", "publish"}
	if opts.DryRun {
		args = append(args, "--dry-run")
	} else {
		args = append(args, "--force")
	}
	cmd := toolexec.Command{Name: c.Dart, Args: args, Dir: opts.Dir}
	if c.Registry != DefaultRegistry {
		cmd.Env = []string{"PUB_HOSTED_URL=" + c.Registry}
	}

	c.Log.Info("publishing package", "dir", opts.Dir, "dryRun", opts.DryRun, "registry", c.Registry)
	if err := c.Runner.Run(ctx, cmd, nil); err != nil {
		return fmt.Errorf("failed to publish package: %w", err)
	}
	return nil
}
