package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		provider string
		wantErr  bool
	}{
		{"jina", Config{Provider: "jina", APIKey: "k"}, ProviderJina, false},
		{"openai upper case", Config{Provider: "OPENAI", APIKey: "k"}, ProviderOpenAI, false},
		{"hugot", Config{Provider: "hugot"}, ProviderHugot, false},
		{"hash", Config{Provider: "hash"}, ProviderHash, false},
		{"unknown", Config{Provider: "nope"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := New(tt.cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedModel)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, emb.Provider())
		})
	}
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{"explicit", map[string]string{EnvEmbeddingProvider: "Hash", EnvJinaAPIKey: "k"}, ProviderHash},
		{"jina key", map[string]string{EnvJinaAPIKey: "k", EnvOpenAIAPIKey: "k"}, ProviderJina},
		{"openai key", map[string]string{EnvOpenAIAPIKey: "k"}, ProviderOpenAI},
		{"fallback", map[string]string{}, ProviderHugot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{EnvEmbeddingProvider, EnvJinaAPIKey, EnvOpenAIAPIKey} {
				t.Setenv(k, tt.env[k])
			}
			assert.Equal(t, tt.expected, DetectProvider())
		})
	}
}
