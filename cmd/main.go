package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mattn/go-isatty"
	"github.com/phuslu/log"
	"github.com/urfave/cli/v2"

	"github.com/enkorde/enkorde"
	"github.com/enkorde/enkorde/datasets"
	"github.com/enkorde/enkorde/options"
	"github.com/enkorde/enkorde/util/fileutil"
)

var tokenizerPath string
var configPath string
var inputPath string
var outputPath string
var mode string
var tokenizerRuntime string
var maxLength int
var batchSize int
var verbose bool

var encodeCommand = &cli.Command{
	Name:  "encode",
	Usage: "Encode a Korean-English parallel corpus into seq2seq model inputs",
	Description: `Encode expects .jsonl input where each line is of the format {"source": "나는 학생 입니다", "target": "i am a student"}.
				Each output line holds the pair with its encoded inputs and labels: {"source": ..., "target": ..., "inputs": [[ids, mask], [ids, mask]], "labels": [...]}.
				`,
	ArgsUsage: `
				--tokenizer: path to a tokenizer.json file or to the folder containing it. Can also be set in the config file.
				--config: path to a .json config file with the keys tokenizer, bos_token, eos_token, pad_token and max_length. Flags take precedence.
				--input: path to a .jsonl file or a folder with .jsonl files to process. If omitted, the input will be read from stdin.
				--output: path to a folder where to write the output. If omitted, the output will be sent to stdout.
				--mode: train builds teacher-forced decoder inputs, infer builds decoder inputs holding the BOS marker only.
				--runtime: GO for the pure go tokenizer, RUST for the huggingface tokenizer (requires the RUST build tag).
				`,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "tokenizer",
			Usage:       "Path to the tokenizer",
			Aliases:     []string{"t"},
			Destination: &tokenizerPath,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to a json config file",
			Aliases:     []string{"c"},
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "input",
			Usage:       "Path to the input data",
			Aliases:     []string{"i"},
			Destination: &inputPath,
		},
		&cli.StringFlag{
			Name:        "output",
			Usage:       "Path to output",
			Aliases:     []string{"o"},
			Destination: &outputPath,
		},
		&cli.StringFlag{
			Name:        "mode",
			Usage:       "train or infer",
			Aliases:     []string{"m"},
			Destination: &mode,
			Value:       "train",
		},
		&cli.StringFlag{
			Name:        "runtime",
			Usage:       "Tokenizer runtime, GO or RUST",
			Aliases:     []string{"r"},
			Destination: &tokenizerRuntime,
			Value:       "GO",
		},
		&cli.IntFlag{
			Name:        "maxLength",
			Usage:       "Length of every encoded row. Overrides the config file",
			Aliases:     []string{"l"},
			Destination: &maxLength,
		},
		&cli.IntFlag{
			Name:        "batchSize",
			Usage:       "Number of pairs to encode in a batch",
			Aliases:     []string{"b"},
			Destination: &batchSize,
			Value:       32,
		},
		&cli.BoolFlag{
			Name:        "verbose",
			Usage:       "Log debug messages",
			Aliases:     []string{"v"},
			Destination: &verbose,
		},
	},
	Action: func(ctx *cli.Context) (err error) {
		setupLogger(verbose)

		encodeMode, err := enkorde.ParseMode(mode)
		if err != nil {
			return err
		}
		if batchSize <= 0 {
			return fmt.Errorf("batch size must be positive, got %d", batchSize)
		}

		session, err := newSession()
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, session.Destroy())
		}()

		var writer io.WriteCloser
		if outputPath != "" {
			if exists, existsErr := fileutil.FileExists(outputPath); existsErr != nil {
				return existsErr
			} else if !exists {
				if createErr := fileutil.CreateFile(outputPath, true); createErr != nil {
					return createErr
				}
			}
			writer, err = fileutil.NewFileWriter(fileutil.PathJoinSafe(outputPath, "result-0.jsonl"))
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, writer.Close())
			}()
		} else {
			writer = os.Stdout
		}

		inputChannel := make(chan []datasets.ParallelExample, 1000)
		processedChannel := make(chan []byte, 1000)
		errorsChannel := make(chan error, 1000)
		var processedWg, writeWg sync.WaitGroup

		processedWg.Add(1)
		go processWithSession(&processedWg, inputChannel, processedChannel, errorsChannel, session, encodeMode)

		var runErrs []error
		writeWg.Add(1)
		go writeOutputs(&writeWg, processedChannel, errorsChannel, writer, &runErrs)

		readErr := readAllInputs(ctx.Context, inputChannel)

		close(inputChannel)
		processedWg.Wait()
		close(processedChannel)
		close(errorsChannel)
		writeWg.Wait()

		statistics := session.GetStatistics()
		log.Info().
			Uint64("tokenizer_calls", statistics.TokenizerExecutionCount).
			Dur("tokenizer_total_time", statistics.TokenizerTotalTime).
			Dur("tokenizer_avg_time", statistics.TokenizerAvgQueryTime).
			Msg("encoding done")
		return errors.Join(append(runErrs, readErr)...)
	},
}

func main() {
	app := &cli.App{
		Name:     "enkorde",
		Usage:    "Korean to English seq2seq data builders from the command line",
		Commands: []*cli.Command{encodeCommand},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("enkorde failed")
	}
}

func setupLogger(debug bool) {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		log.DefaultLogger = log.Logger{
			Level:  level,
			Writer: &log.ConsoleWriter{Writer: os.Stderr, ColorOutput: true},
		}
	} else {
		log.DefaultLogger = log.Logger{
			Level:  level,
			Writer: &log.IOWriter{Writer: os.Stderr},
		}
	}
}

func newSession() (*enkorde.Session, error) {
	var opts []options.WithOption
	if configPath != "" {
		opts = append(opts, options.WithConfigFile(configPath))
	}
	if tokenizerPath != "" {
		opts = append(opts, options.WithTokenizerPath(tokenizerPath))
	}
	if maxLength != 0 {
		opts = append(opts, options.WithMaxLength(maxLength))
	}

	switch tokenizerRuntime {
	case "GO":
		return enkorde.NewGoSession(opts...)
	case "RUST":
		return enkorde.NewRustSession(opts...)
	default:
		return nil, fmt.Errorf("runtime %s not recognized, use GO or RUST", tokenizerRuntime)
	}
}

func readAllInputs(ctx context.Context, inputChannel chan []datasets.ParallelExample) error {
	if inputPath != "" {
		exists, err := fileutil.FileExists(inputPath)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("file %s does not exist", inputPath)
		}
		info, err := fileutil.FileStats(inputPath)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return readInputFile(inputPath, inputChannel)
		}

		fileWalker := func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (toContinue bool, err error) {
			if info.IsDir() || filepath.Ext(info.Name()) != ".jsonl" {
				return true, nil
			}
			log.Debug().Str("file", fileutil.PathJoinSafe(baseURL, parent, info.Name())).Msg("reading input")
			if err := readInputs(reader, inputChannel); err != nil {
				return false, err
			}
			return true, nil
		}
		return fileutil.WalkDir()(ctx, inputPath, fileWalker)
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		// there is something to process on stdin
		return readInputs(os.Stdin, inputChannel)
	}
	return nil
}

func readInputFile(filename string, inputChannel chan []datasets.ParallelExample) (err error) {
	dataset, err := datasets.NewParallelDataset(filename, batchSize, nil)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, dataset.Close())
	}()
	return sendBatches(dataset, inputChannel)
}

func readInputs(inputSource io.Reader, inputChannel chan []datasets.ParallelExample) error {
	dataset, err := datasets.NewStreamParallelDataset(inputSource, batchSize, nil)
	if err != nil {
		return err
	}
	return sendBatches(dataset, inputChannel)
}

func sendBatches(dataset *datasets.ParallelDataset, inputChannel chan []datasets.ParallelExample) error {
	for {
		batch, err := dataset.YieldRaw()
		if errors.Is(err, io.EOF) {
			if len(batch) > 0 {
				inputChannel <- batch
			}
			return nil
		}
		if err != nil {
			return err
		}
		inputChannel <- batch
	}
}

func processWithSession(wg *sync.WaitGroup, inputChannel chan []datasets.ParallelExample, processedChannel chan []byte, errorsChannel chan error, session *enkorde.Session, encodeMode enkorde.Mode) {
	defer wg.Done()
	for inputBatch := range inputChannel {
		batch, err := session.EncodeBatch(inputBatch, encodeMode)
		if err != nil {
			errorsChannel <- err
			continue
		}
		rows, err := batch.Rows()
		if err != nil {
			errorsChannel <- err
			continue
		}
		for _, row := range rows {
			outputBytes, marshallErr := jsoniter.Marshal(row)
			if marshallErr != nil {
				errorsChannel <- marshallErr
			} else {
				processedChannel <- outputBytes
			}
		}
	}
}

func writeOutputs(wg *sync.WaitGroup, processedChannel chan []byte, errorChannel chan error, writeTarget io.Writer, runErrs *[]error) {
	defer wg.Done()
	for processedChannel != nil || errorChannel != nil {
		select {
		case output, ok := <-processedChannel:
			if !ok {
				processedChannel = nil
				continue
			}
			if _, err := writeTarget.Write(append(output, '\n')); err != nil {
				*runErrs = append(*runErrs, err)
			}
		case err, ok := <-errorChannel:
			if !ok {
				errorChannel = nil
				continue
			}
			log.Error().Err(err).Msg("failed to encode batch")
			*runErrs = append(*runErrs, err)
		}
	}
}
