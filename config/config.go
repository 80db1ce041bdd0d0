//
// Copyright 2023 Bytedance Ltd. and/or its affiliates
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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SALE_"

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // mysql | sqlite
	DSN    string `yaml:"dsn"`
}

type LockConfig struct {
	Backend   string        `yaml:"backend"` // db | redis | mem
	TTL       time.Duration `yaml:"ttl"`
	RedisAddr string        `yaml:"redis_addr"`
}

type EventBusConfig struct {
	Backend     string        `yaml:"backend"` // mem | mysql
	ServiceName string        `yaml:"service_name"`
	RunInterval time.Duration `yaml:"run_interval"`
	Retention   time.Duration `yaml:"retention"`
	Capacity    int           `yaml:"capacity"`
}

type LogConfig struct {
	Verbosity int `yaml:"verbosity"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Lock     LockConfig     `yaml:"lock"`
	EventBus EventBusConfig `yaml:"eventbus"`
	Log      LogConfig      `yaml:"log"`
}

func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:sale.db?cache=shared"},
		Lock:     LockConfig{Backend: "db", TTL: 10 * time.Second},
		EventBus: EventBusConfig{
			Backend:     "mem",
			ServiceName: "svc_sale",
			RunInterval: 100 * time.Millisecond,
			Retention:   48 * time.Hour,
			Capacity:    1024,
		},
	}
}

// Load 依次加载 .env、YAML 配置文件和 SALE_ 前缀的环境变量，后者覆盖前者
// path 为空时只使用默认值和环境变量
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"SERVER_ADDR":      &c.Server.Addr,
		"DB_DRIVER":        &c.Database.Driver,
		"DB_DSN":           &c.Database.DSN,
		"LOCK_BACKEND":     &c.Lock.Backend,
		"REDIS_ADDR":       &c.Lock.RedisAddr,
		"EVENTBUS_BACKEND": &c.EventBus.Backend,
		"EVENTBUS_SERVICE": &c.EventBus.ServiceName,
	}
	for key, field := range strs {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*field = v
		}
	}

	durations := map[string]*time.Duration{
		"LOCK_TTL":           &c.Lock.TTL,
		"EVENTBUS_INTERVAL":  &c.EventBus.RunInterval,
		"EVENTBUS_RETENTION": &c.EventBus.Retention,
	}
	for key, field := range durations {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
			}
			*field = d
		}
	}

	if v, ok := os.LookupEnv(envPrefix + "LOG_VERBOSITY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sLOG_VERBOSITY: %w", envPrefix, err)
		}
		c.Log.Verbosity = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	switch c.Lock.Backend {
	case "db", "mem":
	case "redis":
		if c.Lock.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for redis lock")
		}
	default:
		return fmt.Errorf("unsupported lock backend %q", c.Lock.Backend)
	}
	if c.Lock.Backend != "mem" && c.Lock.TTL < time.Second {
		return fmt.Errorf("lock ttl %v must be at least 1s", c.Lock.TTL)
	}

	switch c.EventBus.Backend {
	case "mem":
		if c.EventBus.Capacity <= 0 {
			return fmt.Errorf("eventbus capacity must be positive")
		}
	case "mysql":
	default:
		return fmt.Errorf("unsupported eventbus backend %q", c.EventBus.Backend)
	}
	if c.EventBus.ServiceName == "" || len([]rune(c.EventBus.ServiceName)) > 30 {
		return fmt.Errorf("eventbus service_name must be 1-30 chars")
	}
	if c.EventBus.RunInterval <= 0 {
		return fmt.Errorf("eventbus run_interval must be positive")
	}
	if c.EventBus.Retention < 0 {
		return fmt.Errorf("eventbus retention can not be negative")
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("log verbosity can not be negative")
	}
	return nil
}
