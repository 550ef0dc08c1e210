package cli

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/tipjar/internal/api"
	"github.com/mrz1836/tipjar/internal/config"
	"github.com/mrz1836/tipjar/internal/output"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// serveCmd runs the HTTP API.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tipping API over HTTP",
	Long: `Serve the tipping and wallet session API over HTTP.

One wallet session is shared by every request and kept until the server
stops, so the wallet is asked to authorize once rather than per tip. Signer
work is serialized in arrival order. On interrupt the server stops accepting
requests, lets in-flight tips finish, then revokes the authorization.

Prometheus metrics are served at /metrics.`,
	Example: `  tipjar serve
  tipjar serve --listen 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var serveListen string

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	serveCmd.GroupID = "service"
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default: server.listen)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := Context()
	if serveListen != "" {
		cc.Cfg.Server.Listen = serveListen
	}

	svc, err := cc.Services()
	if err != nil {
		return err
	}
	amounts, err := svc.Validator.QuickAmounts(cc.Cfg.Policy.QuickAmounts)
	if err != nil {
		return err
	}

	handler := api.NewHandler(&api.Config{
		Tips:         svc.Coordinator,
		Session:      svc.Session,
		Policy:       cc.Policy(),
		QuickAmounts: amounts,
		Metrics:      cc.Metrics,
		Logger:       cc.Log,
		Version:      formatVersion(buildInfo),
	})
	srv := handler.NewServer(cc.Cfg.Server.Listen)
	srv.ErrorLog = log.New(cc.Log.Writer(config.LogLevelError), "http: ", 0)

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return tjerr.WithDetails(tjerr.WithCause(tjerr.ErrGeneral, err), map[string]string{"listen": srv.Addr})
	}
	output.Infof(cmd.ErrOrStderr(), "Listening on %s", ln.Addr())
	cc.Log.Info("api listening on %s", ln.Addr())

	return serveUntilDone(commandContext(cmd), srv, ln, svc, cc)
}

// serveUntilDone serves until ctx is cancelled or the server fails, then
// shuts down gracefully and revokes the wallet authorization.
func serveUntilDone(ctx context.Context, srv *http.Server, ln net.Listener, svc *Services, cc *CommandContext) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cc.Cfg.Timeouts.SignerRoundTrip)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		revokeQuietly(svc, cc.Cfg.Timeouts.SignerRoundTrip)
		cc.Log.Info("api stopped")
		return err
	})
	return g.Wait()
}
