package main

import (
	"fmt"

	"github.com/glefebvre/iptvcore/internal/models"
	"github.com/spf13/cobra"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Browse channels across playlists",
}

var channelsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find channels whose name or group contains query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			channels, err := a.library.Service().SearchChannels(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printChannels(cmd, channels)
			return nil
		})
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Browse the groups of split playlists",
}

var groupsListCmd = &cobra.Command{
	Use:   "list <playlist-id>",
	Short: "List the groups of a split playlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			idx := a.library.PlaylistIndex(args[0])
			if idx == nil {
				return fmt.Errorf("playlist %s is not split", args[0])
			}
			for _, g := range idx.Groups {
				cmd.Printf("%-30s %-30s %d\n", g.ID, g.Name, g.ChannelCount)
			}
			cmd.Printf("%d groups, %d channels\n", len(idx.Groups), idx.TotalChannels)
			return nil
		})
	},
}

var groupsChannelsCmd = &cobra.Command{
	Use:   "channels <playlist-id> <group-id>",
	Short: "List the channels of one group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			printChannels(cmd, a.library.GroupChannels(args[0], args[1]))
			return nil
		})
	},
}

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Inspect storage usage",
}

var storageStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the size of split playlist records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			stats, err := a.library.StorageStats()
			if err != nil {
				return err
			}
			cmd.Printf("Indexes:       %d\n", stats.Indexes)
			cmd.Printf("Sub-playlists: %d\n", stats.SubPlaylists)
			cmd.Printf("Total size:    %s\n", stats.TotalSize)
			return nil
		})
	},
}

func init() {
	channelsCmd.AddCommand(channelsSearchCmd)
	groupsCmd.AddCommand(groupsListCmd, groupsChannelsCmd)
	storageCmd.AddCommand(storageStatsCmd)
	rootCmd.AddCommand(channelsCmd, groupsCmd, storageCmd)
}

func printChannels(cmd *cobra.Command, channels []models.Channel) {
	for _, ch := range channels {
		cmd.Printf("%-40s %-20s %s\n", ch.Name, ch.GroupName(), ch.URL)
	}
	cmd.Printf("%d channels\n", len(channels))
}
