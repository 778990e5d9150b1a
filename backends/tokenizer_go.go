package backends

import (
	"bytes"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

type GoTokenizer struct {
	Tokenizer *tokenizer.Tokenizer
}

func loadGoTokenizer(tokenizerBytes []byte) (*Tokenizer, error) {
	tk, tkErr := pretrained.FromReader(bytes.NewReader(tokenizerBytes))
	if tkErr != nil {
		return nil, tkErr
	}
	// fixed-length padding and truncation are applied per call by EncodeBatch
	tk.WithPadding(nil)
	tk.WithTruncation(nil)
	return &Tokenizer{Runtime: "GO", GoTokenizer: &GoTokenizer{Tokenizer: tk}, TokenizerTimings: &timings{}, Destroy: func() error {
		return nil
	}}, nil
}

func encodeGo(tk *Tokenizer, input string) ([]int, error) {
	output, err := tk.GoTokenizer.Tokenizer.EncodeSingle(input, false)
	if err != nil {
		return nil, err
	}
	return realTokens(output.Ids, output.AttentionMask), nil
}

func decodeGo(tokens []int, tokenizer *Tokenizer, skipSpecialTokens bool) string {
	return tokenizer.GoTokenizer.Tokenizer.Decode(tokens, skipSpecialTokens)
}

// realTokens drops positions the tokenizer itself marked as padding.
func realTokens(ids []int, attentionMask []int) []int {
	if len(attentionMask) != len(ids) {
		return ids
	}
	out := make([]int, 0, len(ids))
	for i, id := range ids {
		if attentionMask[i] != 0 {
			out = append(out, id)
		}
	}
	return out
}
