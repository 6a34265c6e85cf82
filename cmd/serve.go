package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/veritasx01/audion-backend/internal/repositories"
	"github.com/veritasx01/audion-backend/internal/server"
	"github.com/veritasx01/audion-backend/internal/services"
	"github.com/veritasx01/audion-backend/internal/tasks"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "cors-origin",
				Usage: "Browser origins allowed to call the API",
				Value: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
			},
		},
		Action: r.Serve,
	}
}

// Serve wires the clients, repositories, and handlers together and runs the
// HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	if port := cmd.Int("port"); port != 0 {
		r.config.Server.Port = int(port)
	}

	db, err := repositories.Connect(ctx, r.config.Database, r.logger)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	spotify, err := services.NewSpotifyClient(r.config.Credentials.Spotify,
		services.DefaultRelevanceFilter(), r.logger)
	if err != nil {
		return err
	}
	defer spotify.Close()

	youtube, err := services.NewYouTubeClient(r.config.Credentials.YouTube.APIKeys, r.logger)
	if err != nil {
		return err
	}

	songs := repositories.NewSongRepository(db)
	playlists := repositories.NewPlaylistRepository(db)
	users := repositories.NewUserRepository(db)
	engine := tasks.NewEngine(spotify, youtube, playlists, r.logger)

	secret := r.config.Server.JWTSecret

	router := server.NewBasicRouter()
	router.Use(server.CORS(cmd.StringSlice("cors-origin")))
	router.Use(server.RequestLogger(r.logger))
	router.Handler(server.NewSongHandler(songs, spotify, secret, r.logger))
	router.Handler(server.NewPlaylistHandler(playlists, engine, secret, r.logger))
	router.Handler(server.NewUserHandler(users, secret, r.logger))
	router.Handler(server.NewAuthHandler(users, secret, r.logger))

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-serveCtx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}
