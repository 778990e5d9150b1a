package builders

import (
	"errors"

	"gorgonia.org/tensor"

	"github.com/enkorde/enkorde/backends"
	"github.com/enkorde/enkorde/util/safeconv"
)

var (
	ErrNoTokenizer      = errors.New("a tokenizer is required")
	ErrInvalidMaxLength = errors.New("max length must be positive")
	ErrBatchMismatch    = errors.New("source and target batches differ in size")
)

// EncoderConfig is the fixed layout of every batch an Encoder produces.
type EncoderConfig struct {
	PadToken  string
	PadID     int
	MaxLength int
}

// Encoder turns a batch of already assembled strings into two aligned (N, MaxLength) int64 tensors:
// the token ids and the attention mask.
type Encoder struct {
	tokenizer backends.TextEncoder
	padding   backends.Padding
}

func NewEncoder(tk backends.TextEncoder, config EncoderConfig) (*Encoder, error) {
	if t, ok := tk.(*backends.Tokenizer); tk == nil || (ok && t == nil) {
		return nil, ErrNoTokenizer
	}
	if config.MaxLength <= 0 {
		return nil, ErrInvalidMaxLength
	}
	return &Encoder{
		tokenizer: tk,
		padding: backends.Padding{
			Token:  config.PadToken,
			ID:     config.PadID,
			Length: config.MaxLength,
		},
	}, nil
}

func (e *Encoder) MaxLength() int {
	return e.padding.Length
}

// Encode tokenizes sents without adding special tokens. Row i of both tensors corresponds to sents[i].
func (e *Encoder) Encode(sents []string) (*tensor.Dense, *tensor.Dense, error) {
	encoded, err := backends.EncodeBatch(e.tokenizer, sents, e.padding)
	if err != nil {
		return nil, nil, err
	}
	batchSize, length := len(encoded), e.padding.Length
	idsBacking := make([]int64, 0, batchSize*length)
	maskBacking := make([]int64, 0, batchSize*length)
	for _, input := range encoded {
		idsBacking = append(idsBacking, safeconv.IntSliceToInt64Slice(input.TokenIDs)...)
		maskBacking = append(maskBacking, safeconv.IntSliceToInt64Slice(input.AttentionMask)...)
	}
	ids := tensor.New(tensor.WithShape(batchSize, length), tensor.WithBacking(idsBacking))
	mask := tensor.New(tensor.WithShape(batchSize, length), tensor.WithBacking(maskBacking))
	return ids, mask, nil
}
