package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/veritasx01/audion-backend/internal/formatter"
	"github.com/veritasx01/audion-backend/internal/repositories"
	"github.com/veritasx01/audion-backend/internal/shared"
)

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export a stored playlist to CSV, Markdown, or plain text",
		ArgsUsage: "<playlistId>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: csv, markdown, or text",
				Value:   "csv",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file (defaults to stdout)",
			},
		},
		Action: r.Export,
	}
}

// Export fetches a playlist from the store and writes it in the requested
// format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.Args().First()
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	db, err := repositories.Connect(ctx, r.config.Database, r.logger)
	if err != nil {
		return err
	}
	defer db.Close(context.Background())

	playlist, err := repositories.NewPlaylistRepository(db).Get(ctx, playlistID)
	if err != nil {
		return err
	}

	var data []byte
	switch cmd.String("format") {
	case "csv":
		data, err = formatter.ExportToCSV(playlist)
	case "markdown":
		data, err = formatter.ExportToMarkdown(playlist)
	case "text":
		data, err = formatter.ExportToText(playlist)
	default:
		return fmt.Errorf("%w: format must be csv, markdown, or text", shared.ErrInvalidArgument)
	}
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		r.logger.Info("playlist exported", "playlist", playlistID, "path", path)
		return nil
	}

	return r.writePlain("%s", data)
}
