package builders

import (
	"fmt"

	"gorgonia.org/tensor"

	"github.com/enkorde/enkorde/backends"
)

// assembler places markers around a batch of sentences and encodes it.
type assembler struct {
	encoder *Encoder
	markers backends.SpecialTokens
}

func newAssembler(tk backends.TextEncoder, markers backends.SpecialTokens, maxLength int) (*assembler, error) {
	encoder, err := NewEncoder(tk, EncoderConfig{
		PadToken:  markers.Pad,
		PadID:     markers.PadID,
		MaxLength: maxLength,
	})
	if err != nil {
		return nil, err
	}
	return &assembler{encoder: encoder, markers: markers}, nil
}

func (a *assembler) encode(placement Placement, sents []string) (*tensor.Dense, *tensor.Dense, error) {
	assembled := make([]string, len(sents))
	for i, sent := range sents {
		assembled[i] = placement.Assemble(a.markers, sent)
	}
	ids, mask, err := a.encoder.Encode(assembled)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode %s batch: %w", placement, err)
	}
	return ids, mask, nil
}

// pair returns the (N, 2, L) stack of ids and mask.
func (a *assembler) pair(placement Placement, sents []string) (*tensor.Dense, error) {
	ids, mask, err := a.encode(placement, sents)
	if err != nil {
		return nil, err
	}
	return ids.Stack(1, mask)
}

// inputs stacks the source and target pairs into (N, 2, 2, L). Axis 1 is source/target, axis 2 is ids/mask.
func (a *assembler) inputs(srcs []string, tgtPlacement Placement, tgts []string) (*tensor.Dense, error) {
	src, err := a.pair(WrapBoth, srcs)
	if err != nil {
		return nil, err
	}
	tgt, err := a.pair(tgtPlacement, tgts)
	if err != nil {
		return nil, err
	}
	return src.Stack(1, tgt)
}

func (a *assembler) MaxLength() int {
	return a.encoder.MaxLength()
}

func (a *assembler) Markers() backends.SpecialTokens {
	return a.markers
}

// TrainInputsBuilder builds the encoder and teacher-forced decoder inputs of a training step.
type TrainInputsBuilder struct {
	*assembler
}

func NewTrainInputsBuilder(tk backends.TextEncoder, markers backends.SpecialTokens, maxLength int) (*TrainInputsBuilder, error) {
	a, err := newAssembler(tk, markers, maxLength)
	if err != nil {
		return nil, err
	}
	return &TrainInputsBuilder{assembler: a}, nil
}

// Build returns a (N, 2, 2, L) tensor. Sources are wrapped as "BOS src EOS", targets as "BOS tgt".
// srcs and tgts must be aligned and of equal length.
func (b *TrainInputsBuilder) Build(srcs []string, tgts []string) (*tensor.Dense, error) {
	if len(srcs) != len(tgts) {
		return nil, fmt.Errorf("%w: %d sources, %d targets", ErrBatchMismatch, len(srcs), len(tgts))
	}
	return b.inputs(srcs, WrapBegin, tgts)
}

// InferInputsBuilder builds the inputs of the first inference step.
type InferInputsBuilder struct {
	*assembler
}

func NewInferInputsBuilder(tk backends.TextEncoder, markers backends.SpecialTokens, maxLength int) (*InferInputsBuilder, error) {
	a, err := newAssembler(tk, markers, maxLength)
	if err != nil {
		return nil, err
	}
	return &InferInputsBuilder{assembler: a}, nil
}

// Build returns a (N, 2, 2, L) tensor laid out like TrainInputsBuilder.Build, where every decoder
// row holds the BOS marker alone.
func (b *InferInputsBuilder) Build(srcs []string) (*tensor.Dense, error) {
	return b.inputs(srcs, BeginOnly, make([]string, len(srcs)))
}

// LabelsBuilder builds the targets of the loss.
type LabelsBuilder struct {
	*assembler
}

func NewLabelsBuilder(tk backends.TextEncoder, markers backends.SpecialTokens, maxLength int) (*LabelsBuilder, error) {
	a, err := newAssembler(tk, markers, maxLength)
	if err != nil {
		return nil, err
	}
	return &LabelsBuilder{assembler: a}, nil
}

// Build returns the (N, L) ids of "tgt EOS". Position i of a label row is the token the decoder should
// predict after reading position i of the matching decoder input. The mask is dropped: padded label
// positions are skipped by the loss through the pad id.
func (b *LabelsBuilder) Build(tgts []string) (*tensor.Dense, error) {
	ids, _, err := b.encode(WrapEnd, tgts)
	return ids, err
}
