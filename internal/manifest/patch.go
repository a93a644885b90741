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

// Package manifest patches the version line of a line-oriented manifest such as pubspec.yaml.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
)

// ErrKeyNotFound is returned when no line of the manifest contains the key.
var ErrKeyNotFound = errors.New("key not found")

// Patcher replaces the first line of Path containing Key with `<Key>: "<value>"`.
type Patcher struct {
	Path string
	Key  string
	Log  logr.Logger
}

// Result describes a completed patch.
type Result struct {
	Path    string
	Key     string
	Value   string
	Line    string
	Index   int
	Changed bool
}

// NewPatcher returns a Patcher with a discarding logger.
func NewPatcher(path, key string) *Patcher {
	return &Patcher{Path: path, Key: key, Log: logr.Discard()}
}

// NormalizeVersion trims surrounding whitespace and strips leading "v" characters.
func NormalizeVersion(raw string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(raw), "v"))
}

// FormatLine renders the replacement line without a terminator.
func FormatLine(key, value string) string {
	return key + `: "` + value + `"`
}

// SplitLines splits content into lines, keeping each line's terminator attached.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string) string {
	return strings.Join(lines, "")
}

// ReplaceFirst returns a copy of lines in which the first line containing key is
// replaced by replacement, along with the index that was replaced.
// The input slice is not modified.
func ReplaceFirst(lines []string, key, replacement string) ([]string, int, error) {
	if key == "" {
		return nil, -1, errors.New("key must not be empty")
	}
	idx := firstMatch(lines, key)
	if idx < 0 {
		return nil, -1, ErrKeyNotFound
	}
	out := make([]string, len(lines))
	copy(out, lines)
	out[idx] = replacement
	return out, idx, nil
}

// Patch normalizes value and writes it into the manifest. The file is left untouched
// when the key is missing or any step before the final rename fails.
func (p *Patcher) Patch(value string) (*Result, error) {
	log := p.Log.WithValues("path", p.Path, "key", p.Key)

	// A symlinked manifest is patched through to its target; renaming over the link
	// would replace the link instead.
	target, err := filepath.EvalSymlinks(p.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path: %w", err)
	}
	data, perm, err := readManifest(target)
	if err != nil {
		return nil, err
	}

	version := NormalizeVersion(value)
	lines := SplitLines(string(data))

	idx := firstMatch(lines, p.Key)
	terminator := "\n"
	if idx >= 0 && strings.HasSuffix(lines[idx], "\r\n") {
		terminator = "\r\n"
	}
	replacement := FormatLine(p.Key, version) + terminator

	patched, idx, err := ReplaceFirst(lines, p.Key, replacement)
	if err != nil {
		return nil, fmt.Errorf("%w: %q in %s", err, p.Key, p.Path)
	}

	result := &Result{
		Path:    p.Path,
		Key:     p.Key,
		Value:   version,
		Line:    strings.TrimRight(replacement, "\r\n"),
		Index:   idx,
		Changed: lines[idx] != replacement,
	}
	if !result.Changed {
		log.V(1).Info("manifest already up to date", "line", idx+1)
		return result, nil
	}

	if err := writeFileAtomic(target, []byte(JoinLines(patched)), perm); err != nil {
		return nil, err
	}
	log.Info("patched manifest", "line", idx+1, "version", version)
	return result, nil
}

func readManifest(path string) ([]byte, os.FileMode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to stat manifest: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read manifest: %w", err)
	}
	return data, info.Mode().Perm(), nil
}

func firstMatch(lines []string, key string) int {
	if key == "" {
		return -1
	}
	for i, line := range lines {
		if strings.Contains(line, key) {
			return i
		}
	}
	return -1
}

// writeFileAtomic writes data to a temp file next to path and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}
