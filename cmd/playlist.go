package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glefebvre/iptvcore/internal/config"
	apperrors "github.com/glefebvre/iptvcore/internal/errors"
	"github.com/glefebvre/iptvcore/internal/library"
	"github.com/glefebvre/iptvcore/internal/models"
	"github.com/glefebvre/iptvcore/internal/playlist"
	"github.com/spf13/cobra"
)

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Manage stored playlists",
}

var playlistAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a playlist from a local M3U file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		name, _ := cmd.Flags().GetString("name")
		url, _ := cmd.Flags().GetString("url")

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read playlist file: %w", err)
		}
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}

		return withApp(func(a *app) error {
			p, err := a.library.SavePlaylist(cmd.Context(), name, string(content), url)
			if err != nil {
				return err
			}
			printPlaylist(cmd, *p, a.library.IsPlaylistSplit(p.ID))
			return nil
		})
	},
}

var playlistImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Download a playlist from a URL and store it",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		url, _ := cmd.Flags().GetString("url")

		return withApp(func(a *app) error {
			p, err := a.library.LoadPlaylistFromURL(cmd.Context(), name, url)
			if err != nil {
				return err
			}
			printPlaylist(cmd, *p, a.library.IsPlaylistSplit(p.ID))
			return nil
		})
	},
}

var playlistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored playlists",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			playlists, err := a.library.Service().LoadPlaylists(cmd.Context())
			if err != nil {
				return err
			}
			if len(playlists) == 0 {
				cmd.Println("No playlists stored")
				return nil
			}
			for _, p := range playlists {
				printPlaylist(cmd, p, a.library.IsPlaylistSplit(p.ID))
			}
			return nil
		})
	},
}

var playlistRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a playlist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.TrimSpace(args[1])
		if name == "" {
			return apperrors.ValidationError("Playlist name is required")
		}

		return withApp(func(a *app) error {
			p, err := a.library.UpdatePlaylist(cmd.Context(), args[0], playlist.Update{Name: &name})
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("playlist not found: %s", args[0])
			}
			printPlaylist(cmd, *p, a.library.IsPlaylistSplit(p.ID))
			return nil
		})
	},
}

var playlistDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a playlist and its group records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			deleted, err := a.library.DeletePlaylist(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("playlist not found: %s", args[0])
			}
			cmd.Printf("Deleted %s\n", args[0])
			return nil
		})
	},
}

var playlistRefreshCmd = &cobra.Command{
	Use:   "refresh <id>",
	Short: "Re-download a playlist from its URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			p, err := a.library.RefreshPlaylist(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("playlist %s not found or has no URL", args[0])
			}
			printPlaylist(cmd, *p, a.library.IsPlaylistSplit(p.ID))
			return nil
		})
	},
}

var playlistExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a stored playlist as M3U",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		var opts library.ExportOptions
		opts.Group.IncludePatterns, _ = cmd.Flags().GetStringSlice("include-group")
		opts.Group.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude-group")
		opts.Name.IncludePatterns, _ = cmd.Flags().GetStringSlice("include-name")
		opts.Name.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude-name")

		return withApp(func(a *app) error {
			content, ok, err := a.library.Export(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("playlist not found: %s", args[0])
			}
			if output == "" || output == "-" {
				cmd.Print(content)
				return nil
			}
			return os.WriteFile(output, []byte(content), 0o644)
		})
	},
}

func init() {
	playlistAddCmd.Flags().String("file", "", "path to the M3U file")
	playlistAddCmd.Flags().String("name", "", "playlist name (default is the file name)")
	playlistAddCmd.Flags().String("url", "", "source URL used by refresh")
	playlistAddCmd.MarkFlagRequired("file")

	playlistImportCmd.Flags().String("name", "", "playlist name")
	playlistImportCmd.Flags().String("url", "", "playlist URL")
	playlistImportCmd.MarkFlagRequired("name")
	playlistImportCmd.MarkFlagRequired("url")

	playlistExportCmd.Flags().StringP("output", "o", "", "output file (default is stdout)")
	playlistExportCmd.Flags().StringSlice("include-group", nil, "keep only groups matching these regular expressions")
	playlistExportCmd.Flags().StringSlice("exclude-group", nil, "drop groups matching these regular expressions")
	playlistExportCmd.Flags().StringSlice("include-name", nil, "keep only channel names matching these regular expressions")
	playlistExportCmd.Flags().StringSlice("exclude-name", nil, "drop channel names matching these regular expressions")

	playlistCmd.AddCommand(playlistAddCmd, playlistImportCmd, playlistListCmd, playlistRenameCmd,
		playlistDeleteCmd, playlistRefreshCmd, playlistExportCmd)
	rootCmd.AddCommand(playlistCmd)
}

// withApp opens storage for the duration of fn
func withApp(fn func(a *app) error) error {
	a, err := newApp(config.Get())
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func printPlaylist(cmd *cobra.Command, p models.Playlist, split bool) {
	line := fmt.Sprintf("%s  %s  %d channels", p.ID, p.Name, len(p.Channels))
	if split {
		line += "  [split]"
	}
	if p.HasURL() {
		line += "  " + p.URL
	}
	cmd.Println(line)
}
