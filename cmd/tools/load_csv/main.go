// Command load_csv imports the fixture CSV files into an empty database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"yamdb/pkg/database"
)

var (
	dir    string
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:          "load_csv",
	Short:        "Load users, categories, genres, titles, reviews and comments from CSV",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger())
	},
}

func init() {
	rootCmd.Flags().StringVar(&dir, "dir", "./data/static", "directory holding the CSV files")
	rootCmd.Flags().StringVar(&dbPath, "db", "./data/yamdb.db", "SQLite database path")
}

func run(ctx context.Context, log zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return err
	}
	db, err := database.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	counts, err := database.LoadCSVDir(ctx, db, dir)
	if errors.Is(err, database.ErrAlreadyLoaded) {
		return fmt.Errorf("%w: refusing to load into a non-empty database", err)
	}
	if err != nil {
		return err
	}

	files := make([]string, 0, len(counts))
	for f := range counts {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		log.Info().Str("file", f).Int("rows", counts[f]).Msg("loaded")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
