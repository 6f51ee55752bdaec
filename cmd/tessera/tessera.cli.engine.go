package main

import (
	"flag"
	"io"

	tessera "github.com/itsatony/go-tessera"
	"github.com/itsatony/go-tessera/library/basic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// engineFlags holds the flags shared by commands that build an engine
type engineFlags struct {
	dir        string
	configPath string
	parser     string
	verbose    bool
}

// register adds the engine flags to fs.
func (f *engineFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.dir, FlagDir, FlagDefaultDir, "")
	fs.StringVar(&f.dir, FlagDirShort, FlagDefaultDir, "")
	fs.StringVar(&f.configPath, FlagConfig, "", "")
	fs.StringVar(&f.configPath, FlagConfigShort, "", "")
	fs.StringVar(&f.parser, FlagParser, "", "")
	fs.StringVar(&f.parser, FlagParserShort, "", "")
	fs.BoolVar(&f.verbose, FlagVerbose, false, "")
	fs.BoolVar(&f.verbose, FlagVerboseShort, false, "")
}

// newLogger returns a console logger on w when verbose, a no-op otherwise.
func newLogger(verbose bool, w io.Writer) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel))
}

// newEngine builds an engine with the basic library. A config file, when
// given, decides the template source; otherwise templates come from dir.
func newEngine(f *engineFlags, stderr io.Writer) (*tessera.Engine, error) {
	logger := newLogger(f.verbose, stderr)
	opts := []tessera.Option{
		tessera.WithLogger(logger),
		tessera.WithLibrary(basic.New()),
		tessera.WithConverter(basic.NewConverter()),
		tessera.WithEnricher(basic.NewClockEnricher(nil)),
	}

	if f.configPath != "" {
		cfg, err := tessera.LoadConfigFile(f.configPath)
		if err != nil {
			return nil, err
		}
		fileOpts, err := cfg.Options(nil, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, fileOpts...)
	} else {
		src, err := tessera.NewFilesystemSource(f.dir, tessera.WithSourceLogger(logger))
		if err != nil {
			return nil, err
		}
		opts = append(opts, tessera.WithSource(src))
	}

	return tessera.New(opts...)
}
