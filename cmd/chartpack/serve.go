package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"

	"github.com/tidemark/chartpack/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chartpack control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, cleanup, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		// Surface transfers interrupted by a previous shutdown so operators
		// know a resume is worthwhile.
		incomplete, err := a.Ledger.GetIncomplete("")
		if err != nil {
			return err
		}
		if len(incomplete) > 0 {
			var remaining int64
			for _, rec := range incomplete {
				if rec.TotalBytes > rec.BytesDownloaded {
					remaining += rec.TotalBytes - rec.BytesDownloaded
				}
			}
			a.Logger.Info("found %d incomplete transfers (%s remaining); run 'chartpack resume' or POST /api/transfers/resume",
				len(incomplete), humanize.Bytes(uint64(remaining)))
		}

		e := echo.New()
		api.RegisterRoutes(e, a)

		srv := &http.Server{
			Addr:    ":" + a.Config.Port,
			Handler: e,
		}

		errCh := make(chan error, 1)
		go func() {
			a.Logger.Info("chartpack listening on %s", srv.Addr)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case <-ctx.Done():
			a.Logger.Info("shutting down")
			// Pause live transfers so their checkpoints survive the restart.
			if err := a.Ledger.PauseAll(""); err != nil {
				a.Logger.Error("failed to pause transfers on shutdown: %v", err)
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	},
}
