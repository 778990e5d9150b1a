package enkorde

import (
	"github.com/enkorde/enkorde/options"
)

// NewGoSession creates a session backed by the pure Go tokenizer.
func NewGoSession(opts ...options.WithOption) (*Session, error) {
	return newSession("GO", opts...)
}
