package builders

import (
	"github.com/enkorde/enkorde/backends"
)

// Placement is where the begin and end markers go around a sentence before it is encoded.
type Placement int

const (
	// WrapBoth is "BOS sentence EOS", the encoder input.
	WrapBoth Placement = iota
	// WrapBegin is "BOS sentence", the teacher-forced decoder input.
	WrapBegin
	// WrapEnd is "sentence EOS", the label: the decoder input shifted left by one.
	WrapEnd
	// BeginOnly is "BOS" alone, the seed of autoregressive decoding. No EOS follows it.
	BeginOnly
)

func (p Placement) String() string {
	switch p {
	case WrapBoth:
		return "WrapBoth"
	case WrapBegin:
		return "WrapBegin"
	case WrapEnd:
		return "WrapEnd"
	case BeginOnly:
		return "BeginOnly"
	}
	return "Unknown"
}

// Assemble returns the text to encode for sentence. Markers and sentence are separated by a space.
func (p Placement) Assemble(markers backends.SpecialTokens, sentence string) string {
	switch p {
	case WrapBoth:
		return markers.BOS + " " + sentence + " " + markers.EOS
	case WrapBegin:
		return markers.BOS + " " + sentence
	case WrapEnd:
		return sentence + " " + markers.EOS
	case BeginOnly:
		return markers.BOS
	}
	return sentence
}
