package datasets

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/phuslu/log"

	"github.com/enkorde/enkorde/util/fileutil"
)

// ParallelExample is a single aligned sentence pair. Source is Korean, Target is its English translation.
type ParallelExample struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type ExamplePreprocessFunc func([]ParallelExample) ([]ParallelExample, error)

// ParallelDataset yields batches of sentence pairs from a .jsonl file, a .jsonl stream or memory.
type ParallelDataset struct {
	reader         *bufio.Reader
	sourceFile     io.ReadCloser
	preprocessFunc ExamplePreprocessFunc
	corpusPath     string
	examples       []ParallelExample
	batchSize      int
	batchN         int
	verbose        bool
	stream         bool
}

func (s *ParallelDataset) SetVerbose(v bool) {
	s.verbose = v
}

func (s *ParallelDataset) Validate() error {
	if s.batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", s.batchSize)
	}
	if len(s.examples) == 0 {
		if s.corpusPath == "" {
			return fmt.Errorf("corpus path is required")
		}
		if filepath.Ext(s.corpusPath) != ".jsonl" {
			return fmt.Errorf("corpus path must be a .jsonl file")
		}
	}
	return nil
}

// NewParallelDataset creates a new ParallelDataset.
// The corpusPath must be a .jsonl file where each line has the following format:
// {"source": "나는 학생 입니다", "target": "i am a student"}
// preprocessFunc, if not nil, is applied to every batch before it is returned.
func NewParallelDataset(corpusPath string, batchSize int, preprocessFunc ExamplePreprocessFunc) (*ParallelDataset, error) {
	d := &ParallelDataset{
		corpusPath:     corpusPath,
		batchSize:      batchSize,
		preprocessFunc: preprocessFunc,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	sourceReadCloser, err := fileutil.OpenFile(corpusPath)
	if err != nil {
		return nil, err
	}
	d.reader = bufio.NewReader(sourceReadCloser)
	d.sourceFile = sourceReadCloser
	return d, nil
}

// NewInMemoryParallelDataset creates a new ParallelDataset from a slice of examples.
func NewInMemoryParallelDataset(examples []ParallelExample, batchSize int, preprocessFunc ExamplePreprocessFunc) (*ParallelDataset, error) {
	d := &ParallelDataset{
		examples:       examples,
		batchSize:      batchSize,
		preprocessFunc: preprocessFunc,
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("at least one example is required")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewStreamParallelDataset creates a ParallelDataset reading .jsonl lines from r, such as stdin.
// A stream dataset cannot be reset and is not closed by Close.
func NewStreamParallelDataset(r io.Reader, batchSize int, preprocessFunc ExamplePreprocessFunc) (*ParallelDataset, error) {
	if r == nil {
		return nil, fmt.Errorf("reader is required")
	}
	d := &ParallelDataset{
		reader:         bufio.NewReader(r),
		batchSize:      batchSize,
		preprocessFunc: preprocessFunc,
		stream:         true,
	}
	if d.batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", d.batchSize)
	}
	return d, nil
}

// Reset resets the dataset to the beginning of the corpus (after the epoch is done).
func (s *ParallelDataset) Reset() error {
	if s.verbose {
		log.Info().Int("batches", s.batchN).Int("batch_size", s.batchSize).Msg("completed epoch, resetting dataset")
	}
	s.batchN = 0
	if len(s.examples) > 0 {
		return nil
	}
	if s.stream {
		return errors.New("a stream dataset cannot be reset")
	}
	if err := s.sourceFile.Close(); err != nil {
		return err
	}
	sourceReadCloser, err := fileutil.OpenFile(s.corpusPath)
	if err != nil {
		return err
	}
	s.sourceFile = sourceReadCloser
	s.reader = bufio.NewReader(sourceReadCloser)
	return nil
}

// YieldRaw returns the next batch of examples. At the end of the corpus it returns the remaining
// examples, possibly none, together with io.EOF. If a preprocessing function has been
// provided at creation time, the examples are preprocessed before being returned.
func (s *ParallelDataset) YieldRaw() ([]ParallelExample, error) {
	examplesBatch := make([]ParallelExample, 0, s.batchSize)
	var yieldErr error
	if len(s.examples) > 0 {
		start := s.batchN * s.batchSize
		end := min(start+s.batchSize, len(s.examples))
		if start < len(s.examples) {
			examplesBatch = append(examplesBatch, s.examples[start:end]...)
		}
		if end >= len(s.examples) {
			yieldErr = io.EOF
		}
	} else {
		for len(examplesBatch) < s.batchSize {
			lineBytes, readErr := fileutil.ReadLine(s.reader)
			if len(bytes.TrimSpace(lineBytes)) > 0 {
				var lineData ParallelExample
				if err := jsoniter.Unmarshal(lineBytes, &lineData); err != nil {
					return nil, fmt.Errorf("failed to parse JSON line: %w", err)
				}
				examplesBatch = append(examplesBatch, lineData)
			}
			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					return nil, readErr
				}
				yieldErr = io.EOF
				break
			}
		}
	}
	s.batchN++
	if s.preprocessFunc != nil && len(examplesBatch) > 0 {
		var preprocessErr error
		examplesBatch, preprocessErr = s.preprocessFunc(examplesBatch)
		if preprocessErr != nil {
			return nil, preprocessErr
		}
	}
	return examplesBatch, yieldErr
}

func (s *ParallelDataset) Close() error {
	if s.sourceFile != nil {
		return s.sourceFile.Close()
	}
	return nil
}

// Split returns the sources and targets of a batch as two aligned slices.
func Split(examples []ParallelExample) ([]string, []string) {
	sources := make([]string, len(examples))
	targets := make([]string, len(examples))
	for i, example := range examples {
		sources[i] = example.Source
		targets[i] = example.Target
	}
	return sources, targets
}
