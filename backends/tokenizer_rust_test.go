//go:build RUST || ALL

package backends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enkorde/enkorde/options"
)

func TestRustTokenizer(t *testing.T) {
	o := options.Defaults()
	o.Backend = "RUST"
	tk, err := LoadTokenizer(testTokenizerPath, o)
	require.NoError(t, err)
	defer func(tk *Tokenizer) {
		assert.NoError(t, tk.Destroy())
	}(tk)

	ids, err := tk.Encode("[BOS] hi there [EOS]")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 5, 2}, ids)

	outputs, err := EncodeBatch(tk, []string{"[BOS] 안녕 하세요 [EOS]"}, Padding{Token: "[PAD]", ID: 0, Length: 6})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 6, 7, 2, 0, 0}, outputs[0].TokenIDs)
	assert.Equal(t, []int{1, 1, 1, 1, 0, 0}, outputs[0].AttentionMask)

	decoded, err := tk.Decode([]int{4, 5}, true)
	require.NoError(t, err)
	assert.Equal(t, "hi there", decoded)
}
