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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "sale.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "mem", cfg.EventBus.Backend)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load("sale.example.yaml")
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "mysql", cfg.EventBus.Backend)
	assert.Equal(t, 100*time.Millisecond, cfg.EventBus.RunInterval)
	assert.Equal(t, 48*time.Hour, cfg.EventBus.Retention)
	assert.Equal(t, 1, cfg.Log.Verbosity)
	// 文件未设置的字段保留默认值
	assert.Equal(t, 1024, cfg.EventBus.Capacity)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeFile(t, "lock:\n  backend: db\n  ttl: 5s\n")
	t.Setenv("SALE_LOCK_BACKEND", "redis")
	t.Setenv("SALE_REDIS_ADDR", "localhost:6379")
	t.Setenv("SALE_LOCK_TTL", "3s")
	t.Setenv("SALE_LOG_VERBOSITY", "2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Lock.Backend)
	assert.Equal(t, "localhost:6379", cfg.Lock.RedisAddr)
	assert.Equal(t, 3*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 2, cfg.Log.Verbosity)

	t.Setenv("SALE_LOCK_TTL", "soon")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"driver":       func(c *Config) { c.Database.Driver = "postgres" },
		"dsn":          func(c *Config) { c.Database.DSN = "" },
		"redis addr":   func(c *Config) { c.Lock.Backend = "redis" },
		"lock backend": func(c *Config) { c.Lock.Backend = "zk" },
		"ttl":          func(c *Config) { c.Lock.TTL = time.Millisecond },
		"eventbus":     func(c *Config) { c.EventBus.Backend = "kafka" },
		"service name": func(c *Config) { c.EventBus.ServiceName = "a_service_name_longer_than_thirty" },
		"interval":     func(c *Config) { c.EventBus.RunInterval = 0 },
		"capacity":     func(c *Config) { c.EventBus.Capacity = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
