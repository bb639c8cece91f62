// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds connection settings for a Postgres server with the pgvector extension.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// Namespace is the schema collections live in. It is applied as the
	// connection's search_path.
	Namespace string

	// SSLMode is passed through to lib/pq ("disable", "require", "verify-full").
	SSLMode string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the server host and port.
func WithHost(host string, port int) ConfigOption {
	return func(c *Config) {
		c.Host = host
		c.Port = port
	}
}

// WithCredentials sets the user and password.
func WithCredentials(user, password string) ConfigOption {
	return func(c *Config) {
		c.User = user
		c.Password = password
	}
}

// WithDatabase sets the database and namespace.
func WithDatabase(database, namespace string) ConfigOption {
	return func(c *Config) {
		c.Database = database
		c.Namespace = namespace
	}
}

// WithSSLMode sets the sslmode connection parameter.
func WithSSLMode(mode string) ConfigOption {
	return func(c *Config) {
		c.SSLMode = mode
	}
}

// DefaultConfig returns a Config for a local development server.
func DefaultConfig() *Config {
	return &Config{
		Host:      "localhost",
		Port:      5432,
		User:      "root",
		Password:  "root",
		Database:  "test",
		Namespace: "test",
		SSLMode:   "disable",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("postgres config: Host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("postgres config: Port must be between 1 and 65535")
	}
	if c.User == "" {
		return errors.New("postgres config: User is required")
	}
	if c.Database == "" {
		return errors.New("postgres config: Database is required")
	}
	return nil
}

// DSN renders the configuration as a lib/pq key/value connection string.
func (c *Config) DSN() string {
	params := []struct{ key, value string }{
		{"host", c.Host},
		{"port", fmt.Sprintf("%d", c.Port)},
		{"user", c.User},
		{"password", c.Password},
		{"dbname", c.Database},
		{"sslmode", c.SSLMode},
		{"search_path", c.Namespace},
	}

	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+quoteDSNValue(p.value))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a value when it contains characters lib/pq treats specially.
func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "'", "\\'")
	return "'" + v + "'"
}
