package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	shortcode "github.com/itsatony/go-shortcode"
)

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}

	return os.ReadFile(path)
}

// writeOutput writes content to a file or stdout
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == FlagDefaultOutput {
		_, err := stdout.Write(data)
		return err
	}

	return os.WriteFile(path, data, FilePermissions)
}

// engineFlags are shared by the commands that build an engine.
type engineFlags struct {
	configPath  string
	fixturePath string
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, FlagConfig, FlagConfigShort, "", CLIFlagUsageConfig)
	cmd.Flags().StringVar(&f.fixturePath, FlagFixture, "", CLIFlagUsageFixture)
	cmd.MarkFlagsMutuallyExclusive(FlagConfig, FlagFixture)
}

// newEngine builds the engine from a config file, a fixture, or defaults.
func (f *engineFlags) newEngine(logger *zap.Logger) (*shortcode.Engine, error) {
	switch {
	case f.configPath != "":
		return shortcode.NewFromConfig(f.configPath, logger)
	case f.fixturePath != "":
		src, err := shortcode.LoadMemorySource(f.fixturePath)
		if err != nil {
			return nil, err
		}
		return shortcode.New(shortcode.WithSource(src), shortcode.WithLogger(logger))
	default:
		return shortcode.New(shortcode.WithLogger(logger))
	}
}

// newLogger returns a development logger on stderr when --verbose is set.
func newLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool(FlagVerbose)
	if !verbose {
		return zap.NewNop()
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(cmd.ErrOrStderr()), zapcore.DebugLevel)
	return zap.New(core)
}
