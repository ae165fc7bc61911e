package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", "   \t\n ", []string{}},
		{"stop words only", "the and of", []string{}},
		{"stems into stop words", "others being", []string{}},
		{"drops stemmed stop words only", "others parse", []string{"pars"}},
		{"stems and drops stop words", "running the tests", []string{"run", "test"}},
		{"deduplicates stems", "test tests testing", []string{"test"}},
		{"drops punctuation and numbers", "foo() == 42 && bar!", []string{"foo", "bar"}},
		{"keeps identifiers", "user_id", []string{"user_id"}},
		{"lowercases", "HTTP Server", []string{"http", "server"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Terms(tt.query)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("empty query yields empty sequence", func(t *testing.T) {
		got := Normalize("")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("character trigrams over joined terms", func(t *testing.T) {
		got := Normalize("running   the tests")
		assert.Equal(t, []string{"run", "un ", "n t", " te", "tes", "est"}, got)
	})

	t.Run("short term string yields nothing", func(t *testing.T) {
		assert.Empty(t, Normalize("go"))
	})

	t.Run("repeated trigrams are dropped", func(t *testing.T) {
		got := Normalize("aaaaa")
		assert.Equal(t, []string{"aaa"}, got)
	})
}

func TestDisjunction(t *testing.T) {
	assert.Equal(t, "", Disjunction(nil))
	assert.Equal(t, `"abc"`, Disjunction([]string{"abc"}))
	assert.Equal(t, `"abc" OR "b c" OR "a""b"`, Disjunction([]string{"abc", "b c", "", `a"b`}))
}

func TestNgrams(t *testing.T) {
	assert.Equal(t, []string{"ab", "bc"}, ngrams("abc", 2))
	assert.Empty(t, ngrams("ab", 3))
	assert.Empty(t, ngrams("abc", 0))
	assert.Equal(t, []string{"héé"}, ngrams("héé", 3), "windows are rune based")
}
