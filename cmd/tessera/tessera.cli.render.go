package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
)

// renderConfig holds parsed render command configuration
type renderConfig struct {
	engineFlags
	template     string
	args         []string
	dataJSON     string
	dataFilePath string
	outputPath   string
}

func runRender(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseRenderFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	data, err := loadData(cfg.dataJSON, cfg.dataFilePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidJSON, err)
		return ExitCodeInputError
	}
	data[VarArgs] = toList(cfg.args)

	engine, err := newEngine(&cfg.engineFlags, stderr)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithDetail, ErrMsgEngineFailed, oneLine(err))
		return ExitCodeError
	}
	defer func() { _ = engine.Stop() }()

	result, err := engine.Render(context.Background(), cfg.template, cfg.parser, data)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithDetail, ErrMsgRenderFailed, oneLine(err))
		return ExitCodeError
	}

	if err := writeOutput(cfg.outputPath, []byte(result), stdout); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}
	return ExitCodeSuccess
}

func parseRenderFlags(args []string) (*renderConfig, error) {
	fs := flag.NewFlagSet(CmdNameRender, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &renderConfig{}
	cfg.register(fs)
	fs.StringVar(&cfg.dataJSON, FlagData, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFile, "", "")
	fs.StringVar(&cfg.dataFilePath, FlagDataFileShort, "", "")
	fs.StringVar(&cfg.outputPath, FlagOutput, FlagDefaultOutput, "")
	fs.StringVar(&cfg.outputPath, FlagOutputShort, FlagDefaultOutput, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rest := fs.Args()
	if len(rest) == 0 || rest[0] == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}
	cfg.template = rest[0]
	cfg.args = rest[1:]
	return cfg, nil
}

// toList converts positional arguments to a template list value.
func toList(args []string) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a
	}
	return out
}
