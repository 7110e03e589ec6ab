package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	shortcode "github.com/itsatony/go-shortcode"
)

// parseConfig holds parsed parse command configuration
type parseConfig struct {
	inputPath string
	format    string
}

// directiveOutput is the JSON form of one parsed directive.
type directiveOutput struct {
	Name         string            `json:"name"`
	Attributes   map[string]string `json:"attributes"`
	InnerContent string            `json:"inner_content,omitempty"`
	SelfClosing  bool              `json:"self_closing"`
	Offset       int               `json:"offset"`
	Line         int               `json:"line"`
	Column       int               `json:"column"`
	Registered   bool              `json:"registered"`
}

func newParseCmd() *cobra.Command {
	cfg := &parseConfig{}
	cmd := &cobra.Command{
		Use:     CmdNameParse,
		Short:   CLIShortParse,
		Example: CLIParseExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runParse(cmd, cfg)
		},
	}
	cmd.Flags().StringVarP(&cfg.inputPath, FlagInput, FlagInputShort, FlagDefaultInput, CLIFlagUsageInput)
	cmd.Flags().StringVarP(&cfg.format, FlagFormat, FlagFormatShort, FlagDefaultFormat, CLIFlagUsageFormat)
	return cmd
}

func runParse(cmd *cobra.Command, cfg *parseConfig) error {
	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return newExitError(ExitCodeUsageError, ErrMsgInvalidFormat, errors.New(cfg.format))
	}

	source, err := readInput(cfg.inputPath, cmd.InOrStdin())
	if err != nil {
		return newExitError(ExitCodeInputError, ErrMsgReadInputFailed, err)
	}

	engine, err := shortcode.New(shortcode.WithLogger(newLogger(cmd)))
	if err != nil {
		return newExitError(ExitCodeError, ErrMsgEngineFailed, err)
	}
	directives := describeDirectives(engine, engine.Parse(string(source)))

	out := cmd.OutOrStdout()
	if cfg.format == OutputFormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(directives)
	}

	for _, d := range directives {
		status := ParseTextUnregistered
		if d.Registered {
			status = ParseTextRegistered
		}
		fmt.Fprintf(out, ParseTextLineFormat, d.Line, d.Column, d.Name, status, formatAttributes(d.Attributes))
	}
	fmt.Fprintf(out, ParseTextSummary, len(directives))
	return nil
}

// describeDirectives converts parsed directives to their output form.
func describeDirectives(engine *shortcode.Engine, parsed []shortcode.Directive) []directiveOutput {
	out := make([]directiveOutput, 0, len(parsed))
	for _, d := range parsed {
		out = append(out, directiveOutput{
			Name:         d.Name,
			Attributes:   d.Attributes.Map(),
			InnerContent: d.InnerContent,
			SelfClosing:  d.SelfClosing,
			Offset:       d.Position.Offset,
			Line:         d.Position.Line,
			Column:       d.Position.Column,
			Registered:   engine.Has(d.Name),
		})
	}
	return out
}

func formatAttributes(attrs map[string]string) string {
	return shortcode.Attributes(attrs).String()
}
