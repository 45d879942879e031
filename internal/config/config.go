// Copyright 2024 The ftsdb Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads ftsd's server configuration the way the teacher
// loads nakama's: a struct tree unmarshaled from an optional YAML file,
// then overridden field-by-field by command line flags generated from the
// same struct via the flags package.
package config

import (
	"flag"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/heroiclabs/ftsdb/flags"
)

// Config is ftsd's top level configuration.
type Config interface {
	GetName() string
	GetDataDir() string
	GetLog() *LogConfig
	GetSocket() *SocketConfig
	GetDatabase() *DatabaseConfig
	GetAdmin() *AdminConfig
}

type config struct {
	Name    string          `yaml:"name" usage:"This node's name, used in its cached description and logs."`
	Config  string          `yaml:"config" usage:"Absolute file path to a configuration YAML file."`
	Datadir string          `yaml:"data_dir" usage:"Absolute path that keys the writable database lock. ftsd writes no database files there; the local backend is held in memory."`
	Log     *LogConfig      `yaml:"log" usage:"Log levels and output"`
	Socket  *SocketConfig   `yaml:"socket" usage:"TCP remote-protocol listener settings"`
	Database *DatabaseConfig `yaml:"database" usage:"Backend open parameters"`
	Admin   *AdminConfig    `yaml:"admin" usage:"Admin HTTP mux settings"`
}

// LogConfig controls zap level, format and lumberjack rotation.
type LogConfig struct {
	Level      string `yaml:"level" usage:"Minimum log level: debug, info, warn or error."`
	Format     string `yaml:"format" usage:"Log encoding: json or stackdriver."`
	File       string `yaml:"file" usage:"Absolute file path to write logs to. Empty means stdout only."`
	Stdout     bool   `yaml:"stdout" usage:"Also log to stdout when a log file is configured."`
	Rotation   bool   `yaml:"rotation" usage:"Rotate the log file with lumberjack instead of appending forever."`
	MaxSize    int    `yaml:"max_size" usage:"Maximum size in megabytes of the log file before it gets rotated."`
	MaxAge     int    `yaml:"max_age" usage:"Maximum number of days to retain old rotated log files."`
	MaxBackups int    `yaml:"max_backups" usage:"Maximum number of old rotated log files to retain."`
	LocalTime  bool   `yaml:"local_time" usage:"Use the host's local time for rotated file timestamps instead of UTC."`
	Compress   bool   `yaml:"compress" usage:"Gzip-compress rotated log files."`
	Verbose    bool   `yaml:"verbose" usage:"Log every connection accepted by Run, and every connection that ends with an error."`
}

func NewLogConfig() *LogConfig {
	return &LogConfig{
		Level:      "info",
		Format:     "json",
		MaxSize:    100,
		MaxAge:     28,
		MaxBackups: 3,
	}
}

// SocketConfig is the TCP remote-protocol listener (C5, spec.md §4.5).
type SocketConfig struct {
	ListenAddr string `yaml:"listen_addr" usage:"Address to accept remote-protocol client connections on."`
	NoDelay    bool   `yaml:"no_delay" usage:"Set TCP_NODELAY on every accepted connection."`
}

func NewSocketConfig() *SocketConfig {
	return &SocketConfig{
		ListenAddr: ":7700",
		NoDelay:    true,
	}
}

// DatabaseConfig names the backend this node opens: either a local
// on-disk path (mode=local) or a remote peer to dial (mode=remote), per
// spec.md §8's "backend open parameters (path, mode, flags) and remote
// open parameters (host, port, timeout_ms, connect_timeout_ms)".
type DatabaseConfig struct {
	Mode             string `yaml:"mode" usage:"Backend mode: local or remote."`
	Path             string `yaml:"path" usage:"On-disk database path. Not read by ftsd: mode=local opens an in-memory backend."`
	RemoteHost       string `yaml:"remote_host" usage:"Remote peer host, used when mode=remote."`
	RemotePort       int    `yaml:"remote_port" usage:"Remote peer port, used when mode=remote."`
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms" usage:"Remote dial timeout in milliseconds."`
	TimeoutMs        int    `yaml:"timeout_ms" usage:"Remote round-trip timeout in milliseconds. Not read by ftsd: remote round trips have no deadline."`
}

func NewDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Mode:             "local",
		Path:             "",
		RemotePort:       7700,
		ConnectTimeoutMs: 5000,
	}
}

// AdminConfig is the optional Prometheus metrics mux.
type AdminConfig struct {
	ListenAddr string `yaml:"listen_addr" usage:"Address to serve /metrics on. Empty disables the admin mux."`
}

func NewAdminConfig() *AdminConfig {
	return &AdminConfig{}
}

// NewConfig constructs a config with the same defaults ftsd ships with.
func NewConfig() *config {
	cwd, _ := os.Getwd()
	return &config{
		Name:     "ftsd",
		Datadir:  filepath.Join(cwd, "data"),
		Log:      NewLogConfig(),
		Socket:   NewSocketConfig(),
		Database: NewDatabaseConfig(),
		Admin:    NewAdminConfig(),
	}
}

// ParseArgs loads defaults, applies an optional --config YAML file, then
// applies command line flag overrides generated from the same struct
// (spec.md's expanded Configuration section, grounded on server/config.go's
// ParseArgs).
func ParseArgs(logger *zap.Logger, args []string) Config {
	cfg := NewConfig()

	if len(args) > 2 && args[1] == "--config" {
		configPath := args[2]
		data, err := os.ReadFile(configPath)
		if err != nil {
			logger.Error("could not read config file, using defaults", zap.Error(err))
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			logger.Error("could not parse config file, using defaults", zap.Error(err))
		} else {
			cfg.Config = configPath
		}
	}

	flagSet := flag.NewFlagSet("ftsd", flag.ExitOnError)
	fm := flags.NewFlagMakerFlagSet(&flags.FlagMakingOptions{
		UseLowerCase: true,
		Flatten:      false,
		TagName:      "yaml",
		TagUsage:     "usage",
	}, flagSet)

	if _, err := fm.ParseArgs(cfg, args[1:]); err != nil {
		logger.Error("could not parse command line arguments - ignoring overrides", zap.Error(err))
	}

	return cfg
}

func (c *config) GetName() string               { return c.Name }
func (c *config) GetDataDir() string             { return c.Datadir }
func (c *config) GetLog() *LogConfig             { return c.Log }
func (c *config) GetSocket() *SocketConfig       { return c.Socket }
func (c *config) GetDatabase() *DatabaseConfig   { return c.Database }
func (c *config) GetAdmin() *AdminConfig         { return c.Admin }
