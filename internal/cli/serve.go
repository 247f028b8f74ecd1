package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	qnet "github.com/mithrel/medchat/internal/quicnet"
	"github.com/mithrel/medchat/internal/server"
	"github.com/mithrel/medchat/internal/wire"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render and history API over HTTP (and QUIC when configured)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getApp(cmd)
			applyConfigFlagOverrides(cmd, app.Cfg, map[string]string{
				"listen": "http_addr",
				"quic":   "quic.addr",
				"token":  "auth.token",
			})
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, app)
		},
	}
	cmd.Flags().String("listen", "", "HTTP listen address (overrides http_addr)")
	cmd.Flags().String("quic", "", "QUIC listen address (overrides quic.addr)")
	cmd.Flags().String("token", "", "bearer token for /v1 routes (overrides auth.token)")
	return cmd
}

func serve(ctx context.Context, app *wire.App) error {
	addr := app.Cfg.GetString("http_addr")
	qaddr := strings.TrimSpace(app.Cfg.GetString("quic.addr"))

	// TLS is resolved before any listener starts so a bad certificate
	// fails the command without leaving the HTTP server behind.
	var (
		tlsConf   *tls.Config
		challenge http.Handler
	)
	if qaddr != "" {
		var err error
		if tlsConf, challenge, err = quicTLS(ctx, app); err != nil {
			return fmt.Errorf("quic tls: %w", err)
		}
	}

	srv := server.New(app.Cfg, app.Store, app.Log)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Router(), ReadHeaderTimeout: 10 * time.Second}
	if strings.TrimSpace(app.Cfg.GetString("auth.token")) == "" {
		app.Log.Printf("serve: auth.token is empty; /v1 routes are open")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Log.Printf("serve: HTTP listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if challenge != nil {
		acme := &http.Server{Addr: ":80", Handler: challenge, ReadHeaderTimeout: 10 * time.Second}
		g.Go(func() error {
			if err := acme.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.Log.Printf("serve: ACME challenge listener: %v", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return acme.Close()
		})
	}
	if qaddr != "" {
		g.Go(func() error {
			app.Log.Printf("serve: QUIC listening on %s", qaddr)
			return qnet.Serve(ctx, qaddr, tlsConf, app.Log)
		})
	}
	return g.Wait()
}

// quicTLS picks PEM files, then ACME, then a self-signed certificate.
func quicTLS(ctx context.Context, app *wire.App) (*tls.Config, http.Handler, error) {
	cfg := app.Cfg
	if cert, key := cfg.GetString("quic.cert_file"), cfg.GetString("quic.key_file"); cert != "" && key != "" {
		c, err := qnet.BuildFileTLS(cert, key)
		return c, nil, err
	}
	if domain := cfg.GetString("quic.domain"); domain != "" {
		return qnet.BuildCertMagicTLS(ctx, qnet.ACMEConfig{
			Domain:   domain,
			Email:    cfg.GetString("quic.email"),
			CertDir:  filepath.Join(cfg.GetString("data_dir"), "acme"),
			ALPNPort: qnet.ParsePort(cfg.GetString("quic.addr")),
		})
	}
	app.Log.Printf("serve: no QUIC certificate configured; using a self-signed one")
	c, err := qnet.SelfSignedTLS()
	return c, nil, err
}
