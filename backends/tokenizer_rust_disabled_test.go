//go:build !RUST && !ALL

package backends

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/enkorde/enkorde/options"
)

func TestRustTokenizerDisabled(t *testing.T) {
	o := options.Defaults()
	o.Backend = "RUST"
	_, err := LoadTokenizer(testTokenizerPath, o)
	assert.ErrorContains(t, err, "rust Tokenizer is not enabled")
}
