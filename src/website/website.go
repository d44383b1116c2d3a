package website

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"time"

	"git.automatex.dev/stem/stemweb/src/auth"
	"git.automatex.dev/stem/stemweb/src/config"
	"git.automatex.dev/stem/stemweb/src/db"
	"git.automatex.dev/stem/stemweb/src/jobs"
	"git.automatex.dev/stem/stemweb/src/logging"
	"git.automatex.dev/stem/stemweb/src/preview"
	"git.automatex.dev/stem/stemweb/src/stemapi"
	"git.automatex.dev/stem/stemweb/src/stemurl"
	"git.automatex.dev/stem/stemweb/src/templates"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var WebsiteCommand = &cobra.Command{
	Use:   "stemweb",
	Short: "Run the STEM website",
	Run: func(cmd *cobra.Command, args []string) {
		defer logging.LogPanics(nil)

		if err := config.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, config.Usage())
			os.Exit(1)
		}

		logging.Info().Str("env", string(config.Config.Env)).Msg("Hello, STEM!")

		templates.Init()

		ctx := context.Background()
		var wg sync.WaitGroup

		sessions := newSessionStore(ctx)
		previews, err := preview.NewFromConfig(ctx, stemurl.BuildPreview)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to set up preview storage")
		}

		// Start background jobs
		wg.Add(1)
		backgroundJobs := jobs.Jobs{
			auth.PeriodicallyDeleteExpiredSessions(sessions),
			preview.PeriodicallyDeleteExpired(previews, time.Minute),
		}

		// Create HTTP server
		wg.Add(1)
		server := http.Server{
			Addr: config.Config.Addr,
			Handler: NewWebsiteRoutes(Deps{
				API:      stemapi.NewFromConfig(),
				Sessions: sessions,
				Previews: previews,
			}),
		}
		go func() {
			logging.Info().Str("addr", config.Config.Addr).Msg("Serving the website")
			serverErr := server.ListenAndServe()
			if !errors.Is(serverErr, http.ErrServerClosed) {
				logging.Error().Err(serverErr).Msg("Server shut down unexpectedly")
			}
			// The wg.Done() happens in the shutdown logic below.
		}()

		// Start up the private HTTP server for pprof and metrics. Because it
		// uses the default mux, and we import pprof, it will automatically have
		// all the pprof routes.
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			// We don't bother to gracefully shut this down.
			logging.Info().Str("addr", config.Config.PrivateAddr).Msg("Serving metrics and pprof")
			err := http.ListenAndServe(config.Config.PrivateAddr, nil)
			logging.Warn().Err(err).Msg("Private server stopped")
		}()

		// Wait for SIGINT in the background and trigger graceful shutdown
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		go func() {
			<-signals // First SIGINT (start shutdown)
			logging.Info().Msg("Shutting down the website")

			const timeout = 10 * time.Second

			go func() {
				logging.Info().Msg("Shutting down background jobs...")
				unfinished := backgroundJobs.CancelAndWait(timeout)
				if len(unfinished) == 0 {
					logging.Info().Msg("Background jobs closed gracefully")
				} else {
					logging.Warn().Strs("Unfinished", unfinished).Msg("Background jobs did not finish by the deadline")
				}
				wg.Done()
			}()

			// Gracefully shut down the HTTP server
			go func() {
				timeoutCtx, cancel := context.WithTimeout(context.Background(), timeout)
				defer cancel()
				err := server.Shutdown(timeoutCtx)
				if err != nil {
					logging.Warn().Err(err).Msg("Server did not shut down gracefully")
				}
				wg.Done()
			}()

			<-signals // Second SIGINT (force quit)
			logging.Warn().Strs("Unfinished background jobs", backgroundJobs.ListUnfinished()).Msg("Forcibly killed the website")
			os.Exit(1)
		}()

		// Wait for all of the above to finish, then exit
		wg.Wait()
	},
}

func newSessionStore(ctx context.Context) auth.SessionStore {
	if config.Config.Sessions.Backend != "postgres" {
		return auth.NewMemorySessionStore()
	}

	conn, err := db.NewConnPool(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to the database")
	}
	store := auth.NewPgSessionStore(conn)
	if err := store.Migrate(ctx); err != nil {
		logging.Fatal().Err(err).Msg("failed to set up the session table")
	}
	return store
}
