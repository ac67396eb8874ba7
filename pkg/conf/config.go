// Copyright 2025 European Digital Reading Lab. All rights reserved.
// Use of this source code is governed by a BSD-style license
// specified in the Github project LICENSE file.

// Package conf loads the validation engine's deployment configuration: a
// YAML file for the values an operator edits by hand (adapted from the
// reference server's pkg/conf/config.go), with environment-variable
// overrides for the values a deployment pipeline injects (the
// kelseyhightower/envconfig convention cmd/lcpencrypt uses).
package conf

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the validation engine's deployment configuration.
type Config struct {
	// StatusCrlUrl is the fixed URL the default CrlService fetches the
	// certificate revocation list from.
	StatusCrlUrl string `yaml:"crl_url" envconfig:"crl_url"`

	// Production defers the license profile check from parse time to
	// integrity validation (spec.md §9); false enforces the basic
	// profile immediately, for development builds exercising only the
	// bundled test profile.
	Production bool `yaml:"production" envconfig:"production"`

	// NetworkTimeoutSeconds overrides the engine's default 5s network
	// budget for the status, license and CRL fetches, in seconds; zero
	// keeps the default. Device registration requests are not bounded by it. Expressed as a plain integer, not a duration
	// string, since yaml.v2 has no built-in time.Duration support.
	NetworkTimeoutSeconds int `yaml:"network_timeout_seconds" envconfig:"network_timeout_seconds"`

	Device      Device      `yaml:"device"`
	Cache       Cache       `yaml:"cache"`
	Certificate Certificate `yaml:"certificate"`
	Auth        Auth        `yaml:"auth"`
}

// Auth configures the bearer session token the default Authentication
// collaborator attaches to status-fetch and device-registration requests.
// A client typically obtains this token out of band (a prior interactive
// login) and only supplies it here for a headless run.
type Auth struct {
	Token string `yaml:"token" envconfig:"auth_token"`
}

// NetworkTimeout returns the configured network timeout override, or zero
// if NetworkTimeoutSeconds was never set.
func (c *Config) NetworkTimeout() time.Duration {
	return time.Duration(c.NetworkTimeoutSeconds) * time.Second
}

// Device identifies this installation to a status server's
// register/renew/return endpoints.
type Device struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Cache configures the local device-registration ledger (pkg/cache).
type Cache struct {
	Dsn string `yaml:"dsn" envconfig:"cache_dsn"`
}

// Certificate locates the CA root bundle DefaultLcpClient verifies a
// provider's signing certificate against. The reference server embeds a
// fixed EDRLab bundle; this client reads one from disk instead (see
// DESIGN.md on why no bundle is embedded here).
type Certificate struct {
	CABundlePath string `yaml:"ca_bundle_path" envconfig:"ca_bundle_path"`
}

// ReadConfig loads configFile, then applies any LCPCLIENT_-prefixed
// environment variable overrides on top.
func ReadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		return nil, errors.New("failed to find the configuration file")
	}

	f, err := filepath.Abs(configFile)
	if err != nil {
		return nil, err
	}
	yamlData, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := yaml.Unmarshal(yamlData, &c); err != nil {
		return nil, err
	}

	if err := envconfig.Process("lcpclient", &c); err != nil {
		return nil, err
	}

	return &c, nil
}
