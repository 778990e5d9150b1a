//go:build RUST || ALL

package backends

import (
	"github.com/daulet/tokenizers"

	"github.com/enkorde/enkorde/util/safeconv"
)

type RustTokenizer struct {
	Tokenizer *tokenizers.Tokenizer
	Options   []tokenizers.EncodeOption
}

func loadRustTokenizer(tokenizerBytes []byte) (*Tokenizer, error) {
	tk, tkErr := tokenizers.FromBytes(tokenizerBytes)
	if tkErr != nil {
		return nil, tkErr
	}
	rustOptions := []tokenizers.EncodeOption{tokenizers.WithReturnAttentionMask()}
	return &Tokenizer{Runtime: "RUST", RustTokenizer: &RustTokenizer{Tokenizer: tk, Options: rustOptions}, TokenizerTimings: &timings{}, Destroy: func() error {
		return tk.Close()
	}}, nil
}

func encodeRust(tk *Tokenizer, input string) ([]int, error) {
	rustTK := tk.RustTokenizer
	output := rustTK.Tokenizer.EncodeWithOptions(input,
		false,
		rustTK.Options...,
	)
	return realTokens(safeconv.Uint32SliceToIntSlice(output.IDs), safeconv.Uint32SliceToIntSlice(output.AttentionMask)), nil
}

func decodeRust(tokens []int, tokenizer *Tokenizer, skipSpecialTokens bool) string {
	return tokenizer.RustTokenizer.Tokenizer.Decode(safeconv.IntSliceToUint32Slice(tokens), skipSpecialTokens)
}
