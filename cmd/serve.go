package main

import (
	"context"
	"time"

	"github.com/glefebvre/iptvcore/internal/api"
	"github.com/glefebvre/iptvcore/internal/config"
	"github.com/glefebvre/iptvcore/internal/database"
	"github.com/glefebvre/iptvcore/internal/shutdown"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the playlist API over HTTP",
	Long: `Start the HTTP API. Playlists are loaded once at startup so legacy data is
migrated into the durable store before the first request is served.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.API.Port
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}

		handler := shutdown.New(30*time.Second, a.log)
		handler.RegisterCloser("legacy storage", a.kv)
		handler.Register("database", func(context.Context) error {
			return database.Close(a.db)
		})

		playlists, err := a.library.Service().LoadPlaylists(cmd.Context())
		if err != nil {
			handler.Shutdown()
			return err
		}
		a.log.WithFields(map[string]interface{}{"playlists": len(playlists)}).Info("playlists loaded")

		var health api.HealthFunc
		if a.db != nil {
			health = func(context.Context) error { return database.HealthCheck(a.db) }
		}
		server := api.NewServer(a.library, api.Options{
			AllowedOrigins: cfg.API.AllowedOrigins,
			Health:         health,
			Logger:         a.log,
		})
		handler.Register("http server", server.Shutdown)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Run(port)
			handler.TriggerShutdown()
		}()

		if err := handler.Wait(cmd.Context()); err != nil {
			return err
		}
		select {
		case err := <-errCh:
			return err
		default:
			return nil
		}
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (default from api.port)")
	rootCmd.AddCommand(serveCmd)
}
