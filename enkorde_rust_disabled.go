//go:build !RUST && !ALL

package enkorde

import (
	"errors"

	"github.com/enkorde/enkorde/options"
)

func NewRustSession(_ ...options.WithOption) (*Session, error) {
	return nil, errors.New("to enable the rust tokenizer, run `go build -tags RUST` or `go build -tags ALL`")
}
