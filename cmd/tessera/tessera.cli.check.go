package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
)

// checkConfig holds parsed check command configuration
type checkConfig struct {
	engineFlags
	templates []string
}

func runCheck(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseCheckFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFlags, err)
		return ExitCodeUsageError
	}

	engine, err := newEngine(&cfg.engineFlags, stderr)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithDetail, ErrMsgEngineFailed, oneLine(err))
		return ExitCodeError
	}
	defer func() { _ = engine.Stop() }()

	failed := 0
	for _, name := range cfg.templates {
		if _, err := engine.Template(context.Background(), name, cfg.parser); err != nil {
			failed++
			fmt.Fprintf(stdout, FmtCheckLine, name, oneLine(err))
			continue
		}
		fmt.Fprintf(stdout, FmtCheckLine, name, CheckTextOK)
	}
	fmt.Fprintf(stdout, CheckTextSummary+FmtNewline, len(cfg.templates), failed)

	if failed > 0 {
		fmt.Fprintln(stderr, ErrMsgCheckFailed)
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}

func parseCheckFlags(args []string) (*checkConfig, error) {
	fs := flag.NewFlagSet(CmdNameCheck, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &checkConfig{}
	cfg.register(fs)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() == 0 {
		return nil, errors.New(ErrMsgMissingTemplate)
	}
	cfg.templates = fs.Args()
	return cfg, nil
}
