package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"github.com/veritasx01/audion-backend/internal/services"
	"github.com/veritasx01/audion-backend/internal/shared"
)

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the catalog for tracks or playlists",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "Search type: track or playlist",
				Value:   "track",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of results",
				Value:   5,
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Search,
	}
}

// Search runs a catalog search and prints the results as JSON.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.Args().First()
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	spotify, err := services.NewSpotifyClient(r.config.Credentials.Spotify,
		services.DefaultRelevanceFilter(), r.logger)
	if err != nil {
		return err
	}
	defer spotify.Close()

	limit := int(cmd.Int("limit"))
	pretty := cmd.Bool("pretty")

	switch cmd.String("type") {
	case "track":
		songs, err := spotify.SearchTracks(ctx, query, limit)
		if err != nil {
			return err
		}
		return r.writeJSON(songs, pretty)
	case "playlist":
		playlists, err := spotify.SearchPlaylists(ctx, query, limit)
		if err != nil {
			return err
		}
		return r.writeJSON(playlists, pretty)
	default:
		return fmt.Errorf("%w: type must be track or playlist", shared.ErrInvalidArgument)
	}
}
