package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveConfig holds parsed serve command configuration
type serveConfig struct {
	engineFlags
	addr string
}

func newServeCmd() *cobra.Command {
	cfg := &serveConfig{}
	cmd := &cobra.Command{
		Use:     CmdNameServe,
		Short:   CLIShortServe,
		Example: CLIServeExample,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.addr, FlagAddr, FlagDefaultAddr, CLIFlagUsageAddr)
	cfg.engineFlags.register(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, cfg *serveConfig) error {
	logger := newLogger(cmd)
	engine, err := cfg.newEngine(logger)
	if err != nil {
		return newExitError(ExitCodeError, ErrMsgEngineFailed, err)
	}
	defer engine.Close()

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              cfg.addr,
		Handler:           newRouter(engine, logger),
		ReadHeaderTimeout: ServerReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(LogMsgServerStarting, zap.String(LogFieldAddr, cfg.addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return newExitError(ExitCodeError, ErrMsgServeFailed, err)
		}
		return nil
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), ServerShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return newExitError(ExitCodeError, ErrMsgServeFailed, err)
	}
	logger.Info(LogMsgServerStopped)
	return nil
}
