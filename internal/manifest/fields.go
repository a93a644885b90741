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

package manifest

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// ValidateSemver reports whether value is a strict semantic version (no "v" prefix,
// all three components present).
func ValidateSemver(value string) error {
	if _, err := semver.StrictNewVersion(value); err != nil {
		return fmt.Errorf("invalid version %q: %w", value, err)
	}
	return nil
}

// ReadField returns the top-level scalar field of a YAML manifest as a string.
// An absent field yields an empty string and no error.
func ReadField(path, field string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read manifest: %w", err)
	}

	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	node, ok := doc[field]
	if !ok {
		return "", nil
	}
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("field %q in %s is not a scalar", field, path)
	}
	return node.Value, nil
}
