package backends

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enkorde/enkorde/options"
)

const testTokenizerPath = "../testData/tokenizer.json"

// wordEncoder maps whitespace separated words to fixed ids.
type wordEncoder map[string][]int

func (w wordEncoder) Encode(text string) ([]int, error) {
	var ids []int
	for _, word := range strings.Fields(text) {
		wordIDs, ok := w[word]
		if !ok {
			return nil, errors.New("unknown word " + word)
		}
		ids = append(ids, wordIDs...)
	}
	return ids, nil
}

var testVocab = wordEncoder{
	"<pad>": {0},
	"<s>":   {1},
	"</s>":  {2},
	"hi":    {5, 6},
	"there": {7},
	"<sep>": {8, 9},
}

func TestEncodeBatchPadsAndTruncates(t *testing.T) {
	padding := Padding{Token: "<pad>", ID: 0, Length: 4}
	outputs, err := EncodeBatch(testVocab, []string{"<s> hi </s>", "hi there hi", "<s>"}, padding)
	require.NoError(t, err)
	require.Len(t, outputs, 3)

	assert.Equal(t, []int{1, 5, 6, 2}, outputs[0].TokenIDs)
	assert.Equal(t, []int{1, 1, 1, 1}, outputs[0].AttentionMask)
	assert.Equal(t, 4, outputs[0].RealLength)

	// truncated on the right
	assert.Equal(t, []int{5, 6, 7, 5}, outputs[1].TokenIDs)
	assert.Equal(t, []int{1, 1, 1, 1}, outputs[1].AttentionMask)
	assert.Equal(t, 4, outputs[1].RealLength)

	assert.Equal(t, []int{1, 0, 0, 0}, outputs[2].TokenIDs)
	assert.Equal(t, []int{1, 0, 0, 0}, outputs[2].AttentionMask)
	assert.Equal(t, 1, outputs[2].RealLength)
	assert.Equal(t, "<s>", outputs[2].Raw)
}

func TestEncodeBatchErrors(t *testing.T) {
	padding := Padding{Token: "<pad>", ID: 0, Length: 4}

	_, err := EncodeBatch(testVocab, []string{}, padding)
	assert.ErrorIs(t, err, ErrEmptyBatch)

	_, err = EncodeBatch(testVocab, []string{"hi"}, Padding{Token: "<pad>", ID: 0, Length: 0})
	assert.ErrorIs(t, err, ErrInvalidPadding)

	_, err = EncodeBatch(testVocab, []string{"hi", "unknown"}, padding)
	assert.ErrorContains(t, err, "failed to encode input 1")

	_, err = EncodeBatch(nil, []string{"hi"}, padding)
	assert.ErrorIs(t, err, ErrNoTokenizer)
}

func TestEncodeBatchPadTextInInput(t *testing.T) {
	outputs, err := EncodeBatch(testVocab, []string{"hi <pad> </s>"}, Padding{Token: "<pad>", ID: 0, Length: 6})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 0, 2, 0, 0}, outputs[0].TokenIDs)
	assert.Equal(t, []int{1, 1, 1, 1, 0, 0}, outputs[0].AttentionMask)
	assert.Equal(t, 4, outputs[0].RealLength)
}

func TestNilTokenizer(t *testing.T) {
	var tk *Tokenizer
	assert.NotPanics(t, func() {
		_, err := tk.Encode("hi")
		assert.ErrorIs(t, err, ErrNoTokenizer)
		_, err = tk.Decode([]int{4}, true)
		assert.ErrorIs(t, err, ErrNoTokenizer)
		_, err = EncodeBatch(tk, []string{"hi"}, Padding{Length: 4})
		assert.ErrorIs(t, err, ErrNoTokenizer)
		_, err = ResolveSpecialTokens(tk, "[BOS]", "[EOS]", "[PAD]")
		assert.ErrorIs(t, err, ErrNoTokenizer)
	})
}

func TestResolveSpecialTokens(t *testing.T) {
	markers, err := ResolveSpecialTokens(testVocab, "<s>", "</s>", "<pad>")
	require.NoError(t, err)
	assert.Equal(t, SpecialTokens{BOS: "<s>", EOS: "</s>", Pad: "<pad>", BOSID: 1, EOSID: 2, PadID: 0}, markers)

	_, err = ResolveSpecialTokens(testVocab, "<sep>", "</s>", "<pad>")
	assert.ErrorIs(t, err, ErrMarkerNotSingleToken)

	_, err = ResolveSpecialTokens(testVocab, "<s>", "<missing>", "<pad>")
	assert.Error(t, err)
}

func loadTestGoTokenizer(t *testing.T, path string) *Tokenizer {
	t.Helper()
	o := options.Defaults()
	o.Backend = "GO"
	tk, err := LoadTokenizer(path, o)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, tk.Destroy())
	})
	return tk
}

func TestGoTokenizer(t *testing.T) {
	tk := loadTestGoTokenizer(t, testTokenizerPath)
	assert.Equal(t, "GO", tk.Runtime)

	ids, err := tk.Encode("[BOS] hi there [EOS]")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 5, 2}, ids)

	ids, err = tk.Encode("안녕 하세요")
	require.NoError(t, err)
	assert.Equal(t, []int{6, 7}, ids)

	markers, err := ResolveSpecialTokens(tk, "[BOS]", "[EOS]", "[PAD]")
	require.NoError(t, err)
	assert.Equal(t, 1, markers.BOSID)
	assert.Equal(t, 2, markers.EOSID)
	assert.Equal(t, 0, markers.PadID)

	decoded, err := tk.Decode([]int{4, 5}, true)
	require.NoError(t, err)
	assert.Equal(t, "hi there", decoded)
}

func TestGoTokenizerFromFolder(t *testing.T) {
	tk := loadTestGoTokenizer(t, "../testData")
	ids, err := tk.Encode("hello world")
	require.NoError(t, err)
	assert.Equal(t, []int{8, 10}, ids)
}

func TestGoTokenizerStatistics(t *testing.T) {
	tk := loadTestGoTokenizer(t, testTokenizerPath)
	padding := Padding{Token: "[PAD]", ID: 0, Length: 6}

	for range 3 {
		outputs, err := EncodeBatch(tk, []string{"[BOS] 나는 학생 입니다 [EOS]", "[BOS] 안녕 [EOS]"}, padding)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 11, 12, 13, 2, 0}, outputs[0].TokenIDs)
		assert.Equal(t, []int{1, 1, 1, 1, 1, 0}, outputs[0].AttentionMask)
		assert.Equal(t, []int{1, 6, 2, 0, 0, 0}, outputs[1].TokenIDs)
	}

	statistics := tk.GetStatistics()
	assert.Equal(t, uint64(3), statistics.TokenizerExecutionCount)
	assert.Greater(t, statistics.TokenizerTotalTime.Nanoseconds(), int64(0))
	assert.GreaterOrEqual(t, statistics.TokenizerTotalTime, statistics.TokenizerAvgQueryTime)
}

func TestLoadTokenizerErrors(t *testing.T) {
	o := options.Defaults()
	o.Backend = "GO"
	_, err := LoadTokenizer("../testData/missing.json", o)
	assert.Error(t, err)

	o.Backend = "TPU"
	_, err = LoadTokenizer(testTokenizerPath, o)
	assert.ErrorContains(t, err, "runtime TPU not recognized")

	unknown := &Tokenizer{Runtime: "TPU"}
	_, err = unknown.Encode("hi")
	assert.Error(t, err)
	_, err = unknown.Decode([]int{1}, true)
	assert.Error(t, err)
}
