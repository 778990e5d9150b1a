package options

import (
	"fmt"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/enkorde/enkorde/util/fileutil"
)

const (
	DefaultBOSToken  = "[BOS]"
	DefaultEOSToken  = "[EOS]"
	DefaultPadToken  = "[PAD]"
	DefaultMaxLength = 128
)

type Options struct {
	Destroy       func() error
	Backend       string
	TokenizerPath string
	BOSToken      string
	EOSToken      string
	PadToken      string
	MaxLength     int
}

func Defaults() *Options {
	return &Options{
		BOSToken:  DefaultBOSToken,
		EOSToken:  DefaultEOSToken,
		PadToken:  DefaultPadToken,
		MaxLength: DefaultMaxLength,
		Destroy: func() error {
			return nil
		},
	}
}

// Validate checks the options that cannot be checked by a single option function.
func (o *Options) Validate() error {
	if o.TokenizerPath == "" {
		return fmt.Errorf("a tokenizer path is required, use WithTokenizerPath or a config file")
	}
	if o.MaxLength <= 0 {
		return fmt.Errorf("max length must be positive, got %d", o.MaxLength)
	}
	if o.BOSToken == "" || o.EOSToken == "" || o.PadToken == "" {
		return fmt.Errorf("bos, eos and pad tokens must all be set")
	}
	return nil
}

// WithOption is the interface for all option functions.
type WithOption func(o *Options) error

// WithTokenizerPath sets the path to a tokenizer.json file, or to a folder containing one.
// Paths starting with s3:// are read from S3.
func WithTokenizerPath(path string) WithOption {
	return func(o *Options) error {
		if path == "" {
			return fmt.Errorf("tokenizer path cannot be empty")
		}
		o.TokenizerPath = path
		return nil
	}
}

// WithMaxLength sets the length every encoded row is padded or truncated to.
func WithMaxLength(maxLength int) WithOption {
	return func(o *Options) error {
		if maxLength <= 0 {
			return fmt.Errorf("max length must be positive, got %d", maxLength)
		}
		o.MaxLength = maxLength
		return nil
	}
}

// WithSpecialTokens sets the marker text for beginning of sequence, end of sequence and padding.
// Each marker must encode to exactly one id in the loaded tokenizer.
func WithSpecialTokens(bos, eos, pad string) WithOption {
	return func(o *Options) error {
		if bos == "" || eos == "" || pad == "" {
			return fmt.Errorf("special tokens cannot be empty")
		}
		o.BOSToken = bos
		o.EOSToken = eos
		o.PadToken = pad
		return nil
	}
}

// Config is the on-disk JSON form of the options.
type Config struct {
	Tokenizer string `json:"tokenizer"`
	BOSToken  string `json:"bos_token"`
	EOSToken  string `json:"eos_token"`
	PadToken  string `json:"pad_token"`
	MaxLength int    `json:"max_length"`
}

// LoadConfig reads a JSON config file, locally or from S3.
func LoadConfig(path string) (*Config, error) {
	configBytes, err := fileutil.ReadFileBytes(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	config := &Config{}
	if err = jsoniter.Unmarshal(configBytes, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return config, nil
}

// WithConfigFile applies the fields set in a JSON config file. Fields missing from the file keep their
// current value, so options given after WithConfigFile override the file. A relative tokenizer path
// is relative to the folder of the config file.
func WithConfigFile(path string) WithOption {
	return func(o *Options) error {
		config, err := LoadConfig(path)
		if err != nil {
			return err
		}
		if config.MaxLength < 0 {
			return fmt.Errorf("max_length in %s must be positive, got %d", path, config.MaxLength)
		}
		if config.Tokenizer != "" {
			o.TokenizerPath = resolveConfigPath(path, config.Tokenizer)
		}
		if config.BOSToken != "" {
			o.BOSToken = config.BOSToken
		}
		if config.EOSToken != "" {
			o.EOSToken = config.EOSToken
		}
		if config.PadToken != "" {
			o.PadToken = config.PadToken
		}
		if config.MaxLength > 0 {
			o.MaxLength = config.MaxLength
		}
		return nil
	}
}

func resolveConfigPath(configPath, path string) string {
	if filepath.IsAbs(path) || fileutil.GetPathType(path) == "S3" {
		return path
	}
	var dir string
	if fileutil.GetPathType(configPath) == "S3" {
		dir = configPath[:strings.LastIndex(configPath, "/")]
	} else {
		dir = filepath.Dir(configPath)
	}
	return fileutil.PathJoinSafe(dir, path)
}
