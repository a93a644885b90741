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

// Package credentials decodes a service account key blob and stages it on disk for gcloud.
package credentials

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

const serviceAccountType = "service_account"

// ServiceAccountKey is a decoded Google service account key. Only the fields used for
// validation and logging are typed; the full document is kept in Raw.
type ServiceAccountKey struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`

	Raw map[string]any `json:"-"`
}

// Decode parses blob as a JSON object, or as standard base64 of one.
func Decode(blob string) (*ServiceAccountKey, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, errors.New("credential blob is empty")
	}

	data := []byte(blob)
	if !json.Valid(data) {
		decoded, err := base64.StdEncoding.DecodeString(blob)
		if err != nil || !json.Valid(decoded) {
			return nil, errors.New("credential blob is neither JSON nor base64-encoded JSON")
		}
		data = decoded
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("credential blob must be a JSON object: %w", err)
	}
	if raw == nil {
		return nil, errors.New("credential blob must be a JSON object")
	}

	key := &ServiceAccountKey{Raw: raw}
	if err := json.Unmarshal(data, key); err != nil {
		return nil, fmt.Errorf("failed to decode service account key: %w", err)
	}
	if key.Type != "" && key.Type != serviceAccountType {
		return nil, fmt.Errorf("unsupported credential type %q (want %q)", key.Type, serviceAccountType)
	}
	return key, nil
}

// Marshal re-encodes the full key document.
func (k *ServiceAccountKey) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(k.Raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// KeyFile is a service account key staged on disk.
type KeyFile struct {
	Path string

	once sync.Once
	err  error
}

// WriteKeyFile writes key to a new credentials-*.json file in dir, readable only by the
// current user. An empty dir means the OS temp directory.
func WriteKeyFile(dir string, key *ServiceAccountKey) (*KeyFile, error) {
	data, err := key.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode service account key: %w", err)
	}

	f, err := os.CreateTemp(dir, "credentials-*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to create key file: %w", err)
	}
	kf := &KeyFile{Path: f.Name()}

	if err := f.Chmod(0600); err != nil {
		_ = f.Close()
		_ = kf.Remove()
		return nil, fmt.Errorf("failed to restrict key file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = kf.Remove()
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = kf.Remove()
		return nil, fmt.Errorf("failed to close key file: %w", err)
	}
	return kf, nil
}

// Remove deletes the key file. It is safe to call more than once.
func (k *KeyFile) Remove() error {
	k.once.Do(func() {
		if err := os.Remove(k.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			k.err = fmt.Errorf("failed to remove key file: %w", err)
		}
	})
	return k.err
}
