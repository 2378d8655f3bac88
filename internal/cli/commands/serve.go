package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/leapcalc/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculator as an HTTP JSON API",
		Long: `Start an HTTP server exposing the calculator.

Each client gets its own variables, kept between requests through a session
cookie and seeded from the configured variables.

Endpoints:
  POST   /api/evaluate         {"input": "..."} evaluates a group of lines
  GET    /api/events           server-sent events with each result of the caller
  GET    /api/variables        lists the caller's variables
  DELETE /api/variables        resets the caller's variables
  DELETE /api/variables/{name} removes a variable and the configured
                               variables derived from it
  GET    /api/history          recent evaluations (when history is enabled)
  GET    /healthz              liveness probe`,
		Example: `  leapcalc serve --port 9000
  curl -c jar -b jar -d '{"input":"a = 2\na ^ 10"}' localhost:9000/api/evaluate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cmdCtx, cleanup, err := NewCommandContext(cmd, "serve")
			if err != nil {
				return err
			}
			defer cleanup()

			// Fail early on broken config variables.
			if _, err := cmdCtx.NewEnvironment(); err != nil {
				return err
			}

			srv := server.NewServer(server.Config{
				Port:          cmdCtx.Cfg.Serve.Port,
				SessionSecret: cmdCtx.Cfg.Serve.SessionSecret,
				Secure:        cmdCtx.Cfg.Serve.Secure,
				Options:       cmdCtx.Options(),
				Prelude:       cmdCtx.Prelude,
				Variables:     cmdCtx.Cfg.Variables,
				Store:         cmdCtx.Store,
				Logger:        cmdCtx.Logger,
			})
			if cmdCtx.Cfg.Serve.SessionSecret == "" {
				cmdCtx.Renderer.Warning("serve.session_secret is not set; sessions end when the server restarts")
			}
			cmdCtx.Renderer.Muted(fmt.Sprintf("Listening on http://localhost:%d", cmdCtx.Cfg.Serve.Port))
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().Int("port", 0, "Port to listen on (default from config)")
	cmd.Flags().Bool("secure", false, "Send the session cookie over HTTPS only")

	return cmd
}
