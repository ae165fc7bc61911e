package reranker

import (
	"testing"

	"github.com/dshills/gocontext-rag/internal/embedder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv("JINA_API_KEY", "")

	tests := []struct {
		name     string
		cfg      Config
		wantNil  bool
		wantName string
		wantErr  bool
	}{
		{name: "empty is none", cfg: Config{}, wantNil: true},
		{name: "none", cfg: Config{Name: "none"}, wantNil: true},
		{name: "jina with key", cfg: Config{Name: "jina", APIKey: "k", Model: "custom"}, wantName: "jina:custom"},
		{name: "jina case insensitive", cfg: Config{Name: "JINA", APIKey: "k"}, wantName: "jina:" + DefaultJinaRerankModel},
		{name: "jina without key", cfg: Config{Name: "jina"}, wantErr: true},
		{name: "embedding", cfg: Config{Name: "embedding", Embedder: embedder.NewHashProvider(8)}, wantName: "embedding:hash/hash-8"},
		{name: "embedding without embedder", cfg: Config{Name: "embedding"}, wantErr: true},
		{name: "unknown", cfg: Config{Name: "cohere"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, m)
				assert.False(t, NewAdapter(m).Configured())
				return
			}
			require.NotNil(t, m)
			assert.Equal(t, tt.wantName, m.Name())
		})
	}
}
