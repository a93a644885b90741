// Package config resolves pubrel settings from defaults, a .pubrel.yaml file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultFile is the config file looked up in the working directory.
	DefaultFile = ".pubrel.yaml"
	// DefaultVersion is used when no version is supplied.
	DefaultVersion = "v0.0.0"
	// DefaultCredentialsEnv names the variable holding the service account key.
	DefaultCredentialsEnv = "PUB_JSON"
)

// Config holds resolved CLI settings.
type Config struct {
	Manifest       string `yaml:"manifest"`
	Key            string `yaml:"key"`
	VersionEnv     string `yaml:"versionEnv"`
	CredentialsEnv string `yaml:"credentialsEnv"`
	Gcloud         string `yaml:"gcloud"`
	Dart           string `yaml:"dart"`
	Audience       string `yaml:"audience"`
	Registry       string `yaml:"registry"`
	KeyDir         string `yaml:"keyDir"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Manifest:       "pubspec.yaml",
		Key:            "version",
		VersionEnv:     "VERSION",
		CredentialsEnv: DefaultCredentialsEnv,
		Gcloud:         "gcloud",
		Dart:           "dart",
		Audience:       "https://pub.dev",
		Registry:       "https://pub.dev",
	}
}

// Load returns defaults overlaid with the config file at path and then the environment.
// A missing file is ignored unless path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	fileCfg, err := Read(path)
	switch {
	case err == nil:
		cfg.merge(fileCfg)
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, err
	}

	cfg.merge(fromEnv())
	return cfg, nil
}

// Read parses a config file.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Version returns the release version from the configured environment variable,
// falling back to DefaultVersion.
func (c *Config) Version() string {
	if v := strings.TrimSpace(os.Getenv(c.VersionEnv)); v != "" {
		return v
	}
	return DefaultVersion
}

// Credentials returns the credential blob from the configured environment variable.
func (c *Config) Credentials() (string, error) {
	blob, ok := os.LookupEnv(c.CredentialsEnv)
	if !ok || strings.TrimSpace(blob) == "" {
		return "", fmt.Errorf("%s is not set", c.CredentialsEnv)
	}
	return blob, nil
}

func fromEnv() *Config {
	return &Config{
		Manifest: strings.TrimSpace(os.Getenv("PUBREL_MANIFEST")),
		Key:      os.Getenv("PUBREL_KEY"),
		Gcloud:   strings.TrimSpace(os.Getenv("PUBREL_GCLOUD")),
		Dart:     strings.TrimSpace(os.Getenv("PUBREL_DART")),
		Registry: strings.TrimSpace(os.Getenv("PUBREL_REGISTRY")),
		KeyDir:   strings.TrimSpace(os.Getenv("PUBREL_KEY_DIR")),
	}
}

func (c *Config) merge(o *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Manifest, o.Manifest)
	set(&c.Key, o.Key)
	set(&c.VersionEnv, o.VersionEnv)
	set(&c.CredentialsEnv, o.CredentialsEnv)
	set(&c.Gcloud, o.Gcloud)
	set(&c.Dart, o.Dart)
	set(&c.Audience, o.Audience)
	set(&c.Registry, o.Registry)
	set(&c.KeyDir, o.KeyDir)
}
