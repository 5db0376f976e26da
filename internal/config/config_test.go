package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, AppConfig)

	assert.Equal(t, "8000", AppConfig.Server.Port)
	assert.Equal(t, 500, AppConfig.RAG.ChunkSize)
	assert.Equal(t, 50, AppConfig.RAG.ChunkOverlap)
	assert.Equal(t, 3, AppConfig.RAG.TopK)
	assert.Equal(t, 10, AppConfig.RAG.MaxHistory)
	assert.Equal(t, 30, AppConfig.LLM.Timeout)
	assert.Equal(t, "local", AppConfig.RAG.Storage.Provider)
	assert.False(t, AppConfig.Kafka.Enabled)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "零超时",
			mutate:  func(c *Config) { c.LLM.Timeout = 0 },
			wantErr: "llm.timeout",
		},
		{
			name:    "top_k非正",
			mutate:  func(c *Config) { c.RAG.TopK = 0 },
			wantErr: "rag.top_k",
		},
		{
			name:    "历史窗口非正",
			mutate:  func(c *Config) { c.RAG.MaxHistory = -1 },
			wantErr: "rag.max_history",
		},
		{
			name:    "overlap不小于chunk_size",
			mutate:  func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize },
			wantErr: "rag.chunk_overlap",
		},
		{
			name:    "负overlap",
			mutate:  func(c *Config) { c.RAG.ChunkOverlap = -5 },
			wantErr: "rag.chunk_overlap",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, LoadConfig())
			cfg := *AppConfig
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
