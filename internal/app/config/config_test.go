package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ClassifierModeInline, cfg.Classifier.Mode)
	assert.Equal(t, 30*time.Second, cfg.Classifier.Timeout)
	assert.Equal(t, int64(8<<20), cfg.Ingest.MaxBytes)
	assert.False(t, cfg.Ingest.LenientCSV)
	assert.Equal(t, 24*time.Hour, cfg.Analysis.TTL)
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
app:
  name: test
classifier:
  mode: queue
  base_url: http://model:5000
  timeout: 5s
ingest:
  lenient_csv: true
redis:
  addr: localhost:6379
lmstfy:
  host: localhost
  token: secret
workers:
  - name: w1
    queue_name: ecg_classify
    callback_queue: ecg_classify_callback
    subscriber:
      threads: 1
      timeout: 3s
    processor:
      threads: 2
      buffer_size: 4
      timeout: 10s
`)
	t.Setenv("ECG_SERVER_PORT", "9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.UsesQueue())
	assert.True(t, cfg.Ingest.LenientCSV)
	assert.Equal(t, 5*time.Second, cfg.Classifier.Timeout)
	require.Len(t, cfg.Workers, 1)
	assert.Equal(t, 10*time.Second, cfg.Workers[0].Processor.Timeout)

	assert.NoError(t, cfg.ValidateServer())
	assert.NoError(t, cfg.ValidateWorker())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateServer(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Classifier.Mode = "carrier-pigeon"
	assert.ErrorContains(t, cfg.ValidateServer(), "classifier.mode")

	cfg.Classifier.Mode = ClassifierModeQueue
	assert.ErrorContains(t, cfg.ValidateServer(), "redis.addr")

	cfg.Redis.Addr = "localhost:6379"
	assert.ErrorContains(t, cfg.ValidateServer(), "lmstfy.host")

	cfg.Lmstfy.Host = "localhost"
	cfg.Lmstfy.Token = "t"
	assert.NoError(t, cfg.ValidateServer())
}

func TestValidateWorker(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Lmstfy.Host = "localhost"
	cfg.Lmstfy.Token = "t"

	assert.ErrorContains(t, cfg.ValidateWorker(), "at least one worker")

	cfg.Workers = []WorkerConfig{{Name: "w", QueueName: "q", CallbackQueue: "cb"}}
	assert.ErrorContains(t, cfg.ValidateWorker(), "threads")

	cfg.Workers[0].Subscriber.Threads = 1
	cfg.Workers[0].Processor.Threads = 1
	cfg.Workers[0].Processor.Timeout = time.Second
	assert.NoError(t, cfg.ValidateWorker())
}

func TestLoad_ShippedConfigs(t *testing.T) {
	server, err := Load(filepath.Join("..", "..", "..", "config", "apiserver.yaml"))
	require.NoError(t, err)
	assert.NoError(t, server.ValidateServer())

	worker, err := Load(filepath.Join("..", "..", "..", "config", "worker.yaml"))
	require.NoError(t, err)
	worker.Lmstfy.Token = "t"
	assert.NoError(t, worker.ValidateWorker())
}
