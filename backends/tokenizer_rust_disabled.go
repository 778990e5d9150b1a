//go:build !RUST && !ALL

package backends

import "errors"

type RustTokenizer struct{}

func loadRustTokenizer(_ []byte) (*Tokenizer, error) {
	return nil, errors.New("rust Tokenizer is not enabled, build with -tags RUST or -tags ALL")
}

func encodeRust(_ *Tokenizer, _ string) ([]int, error) {
	return nil, errors.New("rust Tokenizer is not enabled")
}

func decodeRust(_ []int, _ *Tokenizer, _ bool) string {
	return ""
}
