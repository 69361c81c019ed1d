package main

import (
	"fmt"
	"log"

	"github.com/function61/arkmon/pkg/registry"
	"github.com/function61/gokit/logex"
	"github.com/scylladb/termtables"
	"github.com/spf13/cobra"
)

func favEntry() *cobra.Command {
	parentCmd := &cobra.Command{
		Use:   "fav",
		Short: "Manage per-user server favorites",
	}

	parentCmd.AddCommand(&cobra.Command{
		Use:   "add [userId] [key]",
		Short: "Add a favorite",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			exitIfError(favAdd(args[0], args[1], logex.StandardLogger()))
		},
	})

	parentCmd.AddCommand(&cobra.Command{
		Use:   "rm [userId] [key]",
		Short: "Remove a favorite",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			exitIfError(favRm(args[0], args[1], logex.StandardLogger()))
		},
	})

	parentCmd.AddCommand(&cobra.Command{
		Use:   "ls [userId]",
		Short: "List a user's favorites",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			exitIfError(favLs(args[0], logex.StandardLogger()))
		},
	})

	return parentCmd
}

func favAdd(userId string, key string, logger *log.Logger) error {
	store := favStore(logger)

	if !store.AddFavorite(userId, key) {
		return fmt.Errorf("already a favorite: %s", key)
	}

	return nil
}

func favRm(userId string, key string, logger *log.Logger) error {
	store := favStore(logger)

	if !store.RemoveFavorite(userId, key) {
		return fmt.Errorf("not a favorite: %s", key)
	}

	return nil
}

func favLs(userId string, logger *log.Logger) error {
	store := favStore(logger)

	view := termtables.CreateTable()
	view.AddHeaders("Key")

	for _, key := range store.Favorites(userId) {
		view.AddRow(key)
	}

	fmt.Println(view.Render())

	return nil
}

func favStore(logger *log.Logger) *registry.Store {
	store := registry.NewStore(monitorsPath(), favoritesPath(), logex.Prefix("store", logger))
	store.Load()
	return store
}
