package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, opts ...WithOption) (*Options, error) {
	t.Helper()
	o := Defaults()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	o := Defaults()
	assert.Equal(t, DefaultBOSToken, o.BOSToken)
	assert.Equal(t, DefaultEOSToken, o.EOSToken)
	assert.Equal(t, DefaultPadToken, o.PadToken)
	assert.Equal(t, DefaultMaxLength, o.MaxLength)
	assert.NoError(t, o.Destroy())
	assert.Error(t, o.Validate(), "a tokenizer path is required")
}

func TestOptionValidation(t *testing.T) {
	_, err := apply(t, WithMaxLength(0))
	assert.Error(t, err)
	_, err = apply(t, WithMaxLength(-4))
	assert.Error(t, err)
	_, err = apply(t, WithSpecialTokens("[BOS]", "", "[PAD]"))
	assert.Error(t, err)
	_, err = apply(t, WithTokenizerPath(""))
	assert.Error(t, err)

	o, err := apply(t, WithTokenizerPath("models/kor2eng"), WithMaxLength(5), WithSpecialTokens("<s>", "</s>", "<pad>"))
	require.NoError(t, err)
	assert.Equal(t, "models/kor2eng", o.TokenizerPath)
	assert.Equal(t, 5, o.MaxLength)
	assert.Equal(t, "<s>", o.BOSToken)
	assert.Equal(t, "</s>", o.EOSToken)
	assert.Equal(t, "<pad>", o.PadToken)
	assert.NoError(t, o.Validate())
}

func TestWithConfigFile(t *testing.T) {
	path := writeConfig(t, `{"tokenizer": "models/kor2eng/tokenizer.json", "max_length": 149, "bos_token": "<s>"}`)

	o, err := apply(t, WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "models", "kor2eng", "tokenizer.json"), o.TokenizerPath)
	assert.Equal(t, 149, o.MaxLength)
	assert.Equal(t, "<s>", o.BOSToken)
	assert.Equal(t, DefaultEOSToken, o.EOSToken)

	// later options override the file
	o, err = apply(t, WithConfigFile(path), WithMaxLength(32))
	require.NoError(t, err)
	assert.Equal(t, 32, o.MaxLength)
}

func TestWithConfigFileErrors(t *testing.T) {
	_, err := apply(t, WithConfigFile(filepath.Join(t.TempDir(), "missing.json")))
	assert.Error(t, err)

	_, err = apply(t, WithConfigFile(writeConfig(t, `{"max_length": -1}`)))
	assert.Error(t, err)

	_, err = apply(t, WithConfigFile(writeConfig(t, `{"max_length": "long"`)))
	assert.Error(t, err)
}

func TestConfigTokenizerPath(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		tokenizer  string
		expected   string
	}{
		{"relative", "../testData/config.json", "tokenizer.json", filepath.Join("..", "testData", "tokenizer.json")},
		{"nested", "configs/kor2eng.json", "../models/tokenizer.json", filepath.Join("models", "tokenizer.json")},
		{"absolute", "configs/kor2eng.json", "/opt/models/tokenizer.json", "/opt/models/tokenizer.json"},
		{"s3 tokenizer", "configs/kor2eng.json", "s3://models/kor2eng/tokenizer.json", "s3://models/kor2eng/tokenizer.json"},
		{"s3 config", "s3://configs/kor2eng/config.json", "tokenizer.json", "s3://configs/kor2eng/tokenizer.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveConfigPath(tt.configPath, tt.tokenizer))
		})
	}

	// the shipped test config points next to itself
	o, err := apply(t, WithConfigFile("../testData/config.json"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("..", "testData", "tokenizer.json"), o.TokenizerPath)
	_, err = os.Stat(o.TokenizerPath)
	assert.NoError(t, err)
}
