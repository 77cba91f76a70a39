// Copyright 2026 fanjia1024
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

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cascade.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  temporal_window: "30m"
  min_confidence: 0.5
storage:
  cache:
    type: "redis"
    addr: "127.0.0.1:6379"
log:
  level: "debug"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "30m", cfg.Engine.TemporalWindow)
	assert.Equal(t, 0.5, cfg.Engine.MinConfidence)
	assert.Equal(t, "redis", cfg.Storage.Cache.Type)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 未写入的字段回落到默认值
	assert.Equal(t, 5, cfg.Engine.MaxChainLength)
	assert.Equal(t, "60s", cfg.Engine.CacheTTL)
	assert.Equal(t, "memory", cfg.Storage.History.Type)
	assert.Equal(t, "errcascade:", cfg.Storage.Cache.Prefix)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, `
storage:
  history:
    type: "postgres"
`)
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.history.dsn")
}

func TestValidate_RedisEmptyPrefix(t *testing.T) {
	cfg := Default()
	cfg.Storage.Cache.Type = "redis"
	cfg.Storage.Cache.Addr = "127.0.0.1:6379"
	require.NoError(t, cfg.Validate())

	cfg.Storage.Cache.Prefix = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.cache.prefix")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "1h", cfg.Engine.TemporalWindow)
	assert.Equal(t, 0.6, cfg.Engine.MinConfidence)
	assert.Equal(t, 10, cfg.Engine.ResultLimit)
	assert.Equal(t, 0.5, cfg.Engine.FrequencyFactor)
	require.NoError(t, cfg.Validate())
}

func TestDurationOr(t *testing.T) {
	assert.Equal(t, time.Minute, DurationOr("", time.Minute))
	assert.Equal(t, time.Minute, DurationOr("bogus", time.Minute))
	assert.Equal(t, 90*time.Second, DurationOr("90s", time.Minute))
}
