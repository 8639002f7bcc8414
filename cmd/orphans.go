package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"demodrop/config"
	"demodrop/db"
	"demodrop/repository"
	"demodrop/storage"

	"github.com/spf13/cobra"
)

var removeOrphans bool

// A crashed upload can leave a .part file behind, and a store failure during
// delete can leave a row without its file. Neither is cleaned up at request
// time; this command is the manual reconciliation path for both.
var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List files without track records and records without files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		database, err := db.Connect(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		if err := db.InitSchema(database, cfg.DBDriver); err != nil {
			return err
		}

		store := storage.NewAudioStore(cfg.AudioUploadDir)
		if err := store.EnsureDir(); err != nil {
			return err
		}
		repo := repository.NewSQLTrackRepository(database)

		return reconcileOrphans(repo, store, removeOrphans, os.Stdout)
	},
}

// reconcileOrphans compares the track table against the upload directory and
// reports every mismatch: stale .part temp files, files no record points to,
// and records whose file is gone. With remove set, each is deleted as it is
// reported.
func reconcileOrphans(repo repository.TrackRepository, store *storage.AudioStore, remove bool, out io.Writer) error {
	tracks, err := repo.ListAllTracks()
	if err != nil {
		return err
	}
	recorded := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		recorded[t.FilePath] = true
	}

	files, err := store.List()
	if err != nil {
		return err
	}
	onDisk := make(map[string]bool, len(files))

	for _, name := range files {
		onDisk[name] = true
		switch {
		case strings.HasSuffix(name, storage.PartSuffix):
			fmt.Fprintf(out, "stale temp file: %s\n", name)
		case !recorded[name]:
			fmt.Fprintf(out, "file without record: %s\n", name)
		default:
			continue
		}
		if remove {
			if err := store.Remove(name); err != nil {
				return err
			}
			fmt.Fprintf(out, "removed %s\n", name)
		}
	}

	for _, t := range tracks {
		if onDisk[t.FilePath] {
			continue
		}
		fmt.Fprintf(out, "record without file: %s (demo %s)\n", t.FilePath, t.DemoID)
		if remove {
			if _, err := repo.DeleteTracksByFilePath(t.FilePath); err != nil {
				return err
			}
			fmt.Fprintf(out, "removed record for %s\n", t.FilePath)
		}
	}

	return nil
}

func init() {
	orphansCmd.Flags().BoolVar(&removeOrphans, "remove", false, "delete orphaned files and records instead of only listing them")
	rootCmd.AddCommand(orphansCmd)
}
