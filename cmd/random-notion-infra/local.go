package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jeffrosenberg/random-notion-infra/internal/gateway"
)

func newLocalCmd(a *app) *cobra.Command {
	var (
		addr           string
		invokeEndpoint string
	)

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Serve the HTTP API locally",
		Long: `Local serves the stack's HTTP API routes on a local address and forwards
matching requests to a function running under the Lambda Runtime Interface
Emulator. Requests that match no route get a 404 without invoking.

Start the function first, for example:
    docker run -p 8080:8080 -v "$PWD/.build/build:/var/runtime" \
        public.ecr.aws/lambda/provided:al2023 bootstrap

Examples:
    random-notion-infra local
    random-notion-infra local --addr :3000 --invoke-endpoint http://127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Local.Addr
			}
			if invokeEndpoint == "" {
				invokeEndpoint = cfg.Local.InvokeEndpoint
			}

			s, err := a.synthesize(cmd.Context(), false)
			if err != nil {
				return err
			}
			routes, err := gateway.RoutesFromTemplate(s.Template)
			if err != nil {
				return err
			}
			gw, err := gateway.New(routes, gateway.HTTPInvoker{Endpoint: invokeEndpoint})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			keys := make([]string, len(routes))
			for i, r := range routes {
				keys[i] = r.Key()
			}
			log.WithFields(log.Fields{
				"addr":    addr,
				"invoke":  invokeEndpoint,
				"routes":  keys,
				"variant": cfg.Stack.Variant,
			}).Info("serving local gateway")
			return serve(ctx, &http.Server{
				Addr:              addr,
				Handler:           gw,
				ReadHeaderTimeout: 10 * time.Second,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&invokeEndpoint, "invoke-endpoint", "", "Runtime Interface Emulator base URL (default from config)")

	return cmd
}

// serve runs srv until ctx is done, then shuts it down.
func serve(ctx context.Context, srv *http.Server) error {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("local gateway: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("local gateway stopped")
	return nil
}
