package backends

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/enkorde/enkorde/options"
	"github.com/enkorde/enkorde/util/fileutil"
	"github.com/enkorde/enkorde/util/safeconv"
)

var (
	ErrEmptyBatch           = errors.New("cannot encode an empty batch")
	ErrInvalidPadding       = errors.New("padding length must be positive")
	ErrMarkerNotSingleToken = errors.New("special token does not encode to a single id")
	ErrNoTokenizer          = errors.New("tokenizer is not initialized")
)

// TextEncoder turns one string into token ids, without adding any special tokens.
type TextEncoder interface {
	Encode(text string) ([]int, error)
}

type Tokenizer struct {
	RustTokenizer    *RustTokenizer
	GoTokenizer      *GoTokenizer
	TokenizerTimings *timings
	Destroy          func() error
	Runtime          string
}

// LoadTokenizer loads a tokenizer.json file. The path may also point to a folder containing tokenizer.json.
func LoadTokenizer(path string, s *options.Options) (*Tokenizer, error) {
	tokenizerPath, err := resolveTokenizerPath(path)
	if err != nil {
		return nil, err
	}
	tokenizerBytes, err := fileutil.ReadFileBytes(tokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", tokenizerPath, err)
	}
	switch s.Backend {
	case "RUST":
		return loadRustTokenizer(tokenizerBytes)
	case "GO":
		return loadGoTokenizer(tokenizerBytes)
	default:
		return nil, fmt.Errorf("runtime %s not recognized", s.Backend)
	}
}

func resolveTokenizerPath(path string) (string, error) {
	exists, err := fileutil.FileExists(path)
	if err != nil {
		return "", fmt.Errorf("error checking for existence of %s: %w", path, err)
	}
	if !exists {
		return "", fmt.Errorf("tokenizer %s does not exist", path)
	}
	info, err := fileutil.FileStats(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return fileutil.PathJoinSafe(path, "tokenizer.json"), nil
	}
	return path, nil
}

// Encode returns the ids of text. Special tokens are never added by the tokenizer: markers are
// expected to be part of the text already.
func (t *Tokenizer) Encode(text string) ([]int, error) {
	if t == nil {
		return nil, ErrNoTokenizer
	}
	switch t.Runtime {
	case "RUST":
		return encodeRust(t, text)
	case "GO":
		return encodeGo(t, text)
	}
	return nil, fmt.Errorf("runtime %s not recognized", t.Runtime)
}

func (t *Tokenizer) Decode(tokens []int, skipSpecialTokens bool) (string, error) {
	if t == nil {
		return "", ErrNoTokenizer
	}
	switch t.Runtime {
	case "RUST":
		return decodeRust(tokens, t, skipSpecialTokens), nil
	case "GO":
		return decodeGo(tokens, t, skipSpecialTokens), nil
	}
	return "", fmt.Errorf("runtime %s not recognized", t.Runtime)
}

// Padding is the fixed-length layout of an encoded batch. Each caller owns its Padding, the tokenizer holds none.
type Padding struct {
	Token  string
	ID     int
	Length int
}

// TokenizedInput holds the result of running tokenizer on an input.
type TokenizedInput struct {
	Raw           string
	TokenIDs      []int
	AttentionMask []int
	RealLength    int
}

// EncodeBatch encodes every input and right pads or truncates it to padding.Length.
// The attention mask is 1 for every position holding a token of the input and 0 for padding added here.
// Pad marker text written inside an input is a token of that input: its id is the pad id, its mask is 1.
func EncodeBatch(tk TextEncoder, inputs []string, padding Padding) ([]TokenizedInput, error) {
	if tk == nil {
		return nil, ErrNoTokenizer
	}
	if len(inputs) == 0 {
		return nil, ErrEmptyBatch
	}
	if padding.Length <= 0 {
		return nil, ErrInvalidPadding
	}
	start := time.Now()

	outputs := make([]TokenizedInput, len(inputs))
	for i, input := range inputs {
		ids, err := tk.Encode(input)
		if err != nil {
			return nil, fmt.Errorf("failed to encode input %d: %w", i, err)
		}
		realLength := min(len(ids), padding.Length)
		tokenIDs := make([]int, padding.Length)
		attentionMask := make([]int, padding.Length)
		for j := range padding.Length {
			if j < realLength {
				tokenIDs[j] = ids[j]
				attentionMask[j] = 1
			} else {
				tokenIDs[j] = padding.ID
			}
		}
		outputs[i] = TokenizedInput{
			Raw:           input,
			TokenIDs:      tokenIDs,
			AttentionMask: attentionMask,
			RealLength:    realLength,
		}
	}

	if timed, ok := tk.(*Tokenizer); ok && timed.TokenizerTimings != nil {
		atomic.AddUint64(&timed.TokenizerTimings.NumCalls, 1)
		atomic.AddUint64(&timed.TokenizerTimings.TotalNS, safeconv.DurationToU64(time.Since(start)))
	}
	return outputs, nil
}

// SpecialTokens are the marker texts placed around sentences and the ids they encode to.
type SpecialTokens struct {
	BOS   string
	EOS   string
	Pad   string
	BOSID int
	EOSID int
	PadID int
}

// ResolveSpecialTokens looks up the ids of the bos, eos and pad markers. Markers are concatenated to
// sentences as plain text before encoding, so each must encode to exactly one id on its own.
func ResolveSpecialTokens(tk TextEncoder, bos, eos, pad string) (SpecialTokens, error) {
	if tk == nil {
		return SpecialTokens{}, ErrNoTokenizer
	}
	markers := SpecialTokens{BOS: bos, EOS: eos, Pad: pad}
	var err error
	if markers.BOSID, err = singleTokenID(tk, bos); err != nil {
		return SpecialTokens{}, err
	}
	if markers.EOSID, err = singleTokenID(tk, eos); err != nil {
		return SpecialTokens{}, err
	}
	if markers.PadID, err = singleTokenID(tk, pad); err != nil {
		return SpecialTokens{}, err
	}
	return markers, nil
}

func singleTokenID(tk TextEncoder, marker string) (int, error) {
	ids, err := tk.Encode(marker)
	if err != nil {
		return 0, fmt.Errorf("failed to encode special token %q: %w", marker, err)
	}
	if len(ids) != 1 {
		return 0, fmt.Errorf("%w: %q encodes to %v", ErrMarkerNotSingleToken, marker, ids)
	}
	return ids[0], nil
}
