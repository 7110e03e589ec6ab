package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	shortcode "github.com/itsatony/go-shortcode"
)

// renderConfig holds parsed render command configuration
type renderConfig struct {
	engineFlags
	inputPath  string
	outputPath string
	postID     int64
	postType   string
	userID     int64
	locale     string
	timeout    time.Duration
}

func newRenderCmd() *cobra.Command {
	cfg := &renderConfig{}
	cmd := &cobra.Command{
		Use:     CmdNameRender,
		Short:   CLIShortRender,
		Example: CLIRenderExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.inputPath, FlagInput, FlagInputShort, FlagDefaultInput, CLIFlagUsageInput)
	cmd.Flags().StringVarP(&cfg.outputPath, FlagOutput, FlagOutputShort, FlagDefaultOutput, CLIFlagUsageOutput)
	cmd.Flags().Int64Var(&cfg.postID, FlagPostID, 0, CLIFlagUsagePostID)
	cmd.Flags().StringVar(&cfg.postType, FlagPostType, "", CLIFlagUsagePostTyp)
	cmd.Flags().Int64Var(&cfg.userID, FlagUserID, 0, CLIFlagUsageUserID)
	cmd.Flags().StringVar(&cfg.locale, FlagLocale, "", CLIFlagUsageLocale)
	cmd.Flags().DurationVar(&cfg.timeout, FlagTimeout, FlagDefaultTimeout, CLIFlagUsageTimeout)
	cfg.engineFlags.register(cmd)
	return cmd
}

func runRender(cmd *cobra.Command, cfg *renderConfig) error {
	source, err := readInput(cfg.inputPath, cmd.InOrStdin())
	if err != nil {
		return newExitError(ExitCodeInputError, ErrMsgReadInputFailed, err)
	}

	engine, err := cfg.newEngine(newLogger(cmd))
	if err != nil {
		return newExitError(ExitCodeError, ErrMsgEngineFailed, err)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	out, err := engine.RenderString(ctx, string(source), &shortcode.Context{
		PostID:   cfg.postID,
		PostType: cfg.postType,
		UserID:   cfg.userID,
		Locale:   cfg.locale,
	})
	if err != nil {
		return newExitError(ExitCodeError, ErrMsgRenderFailed, err)
	}

	if err := writeOutput(cfg.outputPath, []byte(out), cmd.OutOrStdout()); err != nil {
		return newExitError(ExitCodeError, ErrMsgWriteOutputFailed, err)
	}
	return nil
}
