//go:build RUST || ALL

package enkorde

import (
	"github.com/enkorde/enkorde/options"
)

// NewRustSession creates a session backed by the huggingface rust tokenizer. It requires libtokenizers.a at link time.
func NewRustSession(opts ...options.WithOption) (*Session, error) {
	return newSession("RUST", opts...)
}
