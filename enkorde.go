package enkorde

import (
	"errors"
	"fmt"

	"github.com/phuslu/log"
	"gorgonia.org/tensor"

	"github.com/enkorde/enkorde/backends"
	"github.com/enkorde/enkorde/builders"
	"github.com/enkorde/enkorde/datasets"
	"github.com/enkorde/enkorde/options"
)

// Session holds a loaded tokenizer and the builders that share it.
type Session struct {
	tokenizer          *backends.Tokenizer
	trainInputsBuilder *builders.TrainInputsBuilder
	inferInputsBuilder *builders.InferInputsBuilder
	labelsBuilder      *builders.LabelsBuilder
	options            *options.Options
}

func newSession(backend string, opts ...options.WithOption) (*Session, error) {
	parsedOptions := options.Defaults()
	parsedOptions.Backend = backend
	for _, option := range opts {
		err := option(parsedOptions)
		if err != nil {
			return nil, err
		}
	}
	if err := parsedOptions.Validate(); err != nil {
		return nil, err
	}

	tk, err := backends.LoadTokenizer(parsedOptions.TokenizerPath, parsedOptions)
	if err != nil {
		return nil, err
	}
	session := &Session{tokenizer: tk, options: parsedOptions}
	if err = session.initialiseBuilders(); err != nil {
		return nil, errors.Join(err, session.Destroy())
	}

	log.Debug().
		Str("runtime", tk.Runtime).
		Str("tokenizer", parsedOptions.TokenizerPath).
		Int("max_length", parsedOptions.MaxLength).
		Msg("session created")
	return session, nil
}

func (s *Session) initialiseBuilders() error {
	o := s.options
	markers, err := backends.ResolveSpecialTokens(s.tokenizer, o.BOSToken, o.EOSToken, o.PadToken)
	if err != nil {
		return err
	}
	if s.trainInputsBuilder, err = builders.NewTrainInputsBuilder(s.tokenizer, markers, o.MaxLength); err != nil {
		return err
	}
	if s.inferInputsBuilder, err = builders.NewInferInputsBuilder(s.tokenizer, markers, o.MaxLength); err != nil {
		return err
	}
	s.labelsBuilder, err = builders.NewLabelsBuilder(s.tokenizer, markers, o.MaxLength)
	return err
}

// Markers returns the special tokens of the session and their ids.
func (s *Session) Markers() backends.SpecialTokens {
	return s.labelsBuilder.Markers()
}

// TrainInputs returns the (N, 2, 2, L) encoder and decoder inputs of a training step.
func (s *Session) TrainInputs(srcs []string, tgts []string) (*tensor.Dense, error) {
	return s.trainInputsBuilder.Build(srcs, tgts)
}

// InferInputs returns the (N, 2, 2, L) inputs of the first inference step.
func (s *Session) InferInputs(srcs []string) (*tensor.Dense, error) {
	return s.inferInputsBuilder.Build(srcs)
}

// Labels returns the (N, L) label ids of a batch of targets.
func (s *Session) Labels(tgts []string) (*tensor.Dense, error) {
	return s.labelsBuilder.Build(tgts)
}

// Decode turns ids back into text, skipping the special tokens when asked.
func (s *Session) Decode(ids []int, skipSpecialTokens bool) (string, error) {
	return s.tokenizer.Decode(ids, skipSpecialTokens)
}

// Mode selects the inputs built for a batch of examples.
type Mode int

const (
	// ModeTrain builds teacher-forced inputs.
	ModeTrain Mode = iota
	// ModeInfer builds inputs whose decoder side holds only the BOS marker.
	ModeInfer
)

func (m Mode) String() string {
	switch m {
	case ModeTrain:
		return "train"
	case ModeInfer:
		return "infer"
	}
	return "unknown"
}

func ParseMode(mode string) (Mode, error) {
	switch mode {
	case "train":
		return ModeTrain, nil
	case "infer":
		return ModeInfer, nil
	}
	return 0, fmt.Errorf("mode %s not recognized, use train or infer", mode)
}

// Batch is a batch of examples ready for the model. Row i of Inputs and Labels belongs to Examples[i].
type Batch struct {
	Inputs   *tensor.Dense
	Labels   *tensor.Dense
	Examples []datasets.ParallelExample
	Mode     Mode
}

// EncodeBatch builds the inputs and labels of a batch of examples. Labels are built in both modes so
// inference inputs can be scored against the references.
func (s *Session) EncodeBatch(examples []datasets.ParallelExample, mode Mode) (*Batch, error) {
	sources, targets := datasets.Split(examples)
	var inputs *tensor.Dense
	var err error
	switch mode {
	case ModeTrain:
		inputs, err = s.TrainInputs(sources, targets)
	case ModeInfer:
		inputs, err = s.InferInputs(sources)
	default:
		return nil, fmt.Errorf("mode %d not recognized", mode)
	}
	if err != nil {
		return nil, err
	}
	labels, err := s.Labels(targets)
	if err != nil {
		return nil, err
	}
	return &Batch{Inputs: inputs, Labels: labels, Examples: examples, Mode: mode}, nil
}

// GetStatistics returns runtime statistics of the session tokenizer for profiling purposes: the total time
// spent encoding batches, the number of batches and the average time per batch.
func (s *Session) GetStatistics() backends.Statistics {
	return s.tokenizer.GetStatistics()
}

// Destroy frees the tokenizer. A session should be destroyed when not needed any more, preferably with a defer() call.
func (s *Session) Destroy() error {
	var err error
	if s.tokenizer != nil {
		err = s.tokenizer.Destroy()
		s.tokenizer = nil
	}
	if s.options != nil {
		err = errors.Join(err, s.options.Destroy())
		s.options = nil
	}
	s.trainInputsBuilder = nil
	s.inferInputsBuilder = nil
	s.labelsBuilder = nil
	return err
}

// Row is one example of a batch with its tensors as nested slices: Inputs[0] is the source side,
// Inputs[1] the target side, and each side holds the ids then the mask.
type Row struct {
	Source string        `json:"source"`
	Target string        `json:"target"`
	Inputs [2][2][]int64 `json:"inputs"`
	Labels []int64       `json:"labels"`
}

// Rows splits the batch per example.
func (b *Batch) Rows() ([]Row, error) {
	inputs, ok := b.Inputs.Data().([]int64)
	if !ok {
		return nil, fmt.Errorf("inputs have type %T, expected []int64", b.Inputs.Data())
	}
	labels, ok := b.Labels.Data().([]int64)
	if !ok {
		return nil, fmt.Errorf("labels have type %T, expected []int64", b.Labels.Data())
	}
	batchSize := len(b.Examples)
	length := b.Labels.Shape()[1]
	if len(inputs) != batchSize*4*length || len(labels) != batchSize*length {
		return nil, fmt.Errorf("batch of %d examples does not match inputs %v and labels %v", batchSize, b.Inputs.Shape(), b.Labels.Shape())
	}

	rows := make([]Row, batchSize)
	for i, example := range b.Examples {
		rows[i].Source = example.Source
		rows[i].Target = example.Target
		for side := range 2 {
			for kind := range 2 {
				offset := ((i*2+side)*2 + kind) * length
				rows[i].Inputs[side][kind] = inputs[offset : offset+length]
			}
		}
		rows[i].Labels = labels[i*length : (i+1)*length]
	}
	return rows, nil
}
