package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.InDelta(t, 0.7, cfg.LLM.ChatTemperature, 1e-9)
	assert.InDelta(t, 0.2, cfg.LLM.ExtractionTemperature, 1e-9)
	assert.Equal(t, "mongodb://localhost:27017/", cfg.Databases.MongoDB.Address)
	assert.Equal(t, "student_mentors", cfg.Databases.MongoDB.Database)
	assert.Equal(t, HistoryConfig{TrimThreshold: 30, HeadKeep: 3, TailKeep: 20}, cfg.Mentor.History)
	assert.Equal(t, TransportInProcess, cfg.Mentor.Extraction.Transport)
	assert.Equal(t, ":8080", cfg.Mentor.ServerAddress)
}

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeYAML(t, `
llm:
  provider: openai
  model: gpt-4o-mini
  chatTemperature: 0.5
databases:
  mongodb:
    database: from_yaml
mentor:
  storage: memory
`)
	t.Setenv("MENTOR_MONGODB_DB", "from_env")
	t.Setenv("MENTOR_EXTRACTION_TEMPERATURE", "0.1")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.BaseURL, "ollama base URL must not leak into other providers")
	assert.InDelta(t, 0.5, cfg.LLM.ChatTemperature, 1e-9)
	assert.InDelta(t, 0.1, cfg.LLM.ExtractionTemperature, 1e-9)
	assert.Equal(t, "from_env", cfg.Databases.MongoDB.Database)
	assert.Equal(t, StorageMemory, cfg.Mentor.Storage)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MENTOR_LLM_MODEL=mistral\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("MENTOR_LLM_MODEL") })

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.LLM.Model)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"unknown provider", func(c *AppConfig) { c.LLM.Provider = "bard" }},
		{"temperature too high", func(c *AppConfig) { c.LLM.ChatTemperature = 3 }},
		{"negative window", func(c *AppConfig) { c.Mentor.History.TailKeep = -1 }},
		{"kafka without brokers", func(c *AppConfig) { c.Mentor.Extraction.Transport = TransportKafka }},
		{"bad duration", func(c *AppConfig) { c.Mentor.GenerationTimeout = "soon" }},
		{"unknown cache", func(c *AppConfig) { c.Mentor.StudentCache.Backend = "memcached" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &AppConfig{}
			cfg.ApplyDefaults()
			require.NoError(t, cfg.Validate())
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
