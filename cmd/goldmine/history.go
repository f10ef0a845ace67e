package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abelbrown/goldmine/internal/store"
	"github.com/abelbrown/goldmine/internal/ui"
)

func (c *cli) historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved scans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			defer svc.Close()

			entries, err := svc.History(cmd.Context(), c.user)
			if err != nil {
				return err
			}
			fmt.Print(ui.RenderHistory(entries))
			return nil
		},
	}

	var plain bool
	show := &cobra.Command{
		Use:   "show <analysis-id>",
		Short: "Show a saved scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			defer svc.Close()

			result, err := svc.Analysis(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no saved scan %q (see 'goldmine history')", args[0])
			}
			if err != nil {
				return err
			}
			if plain {
				fmt.Print(ui.RenderPlain(result, false))
			} else {
				fmt.Print(ui.RenderFindings(result, false, 100))
			}
			return nil
		},
	}
	show.Flags().BoolVar(&plain, "plain", false, "plain text output")

	cmd.AddCommand(show)
	return cmd
}

func (c *cli) favoriteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorite",
		Aliases: []string{"fav"},
		Short:   "Bookmark findings",
	}

	add := &cobra.Command{
		Use:   "add <analysis-id> <rank>",
		Short: "Bookmark the finding at rank in a saved scan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rank, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rank %q is not a number", args[1])
			}
			svc, err := c.service()
			if err != nil {
				return err
			}
			defer svc.Close()

			fav, err := svc.AddFavorite(cmd.Context(), c.user, args[0], rank)
			switch {
			case errors.Is(err, store.ErrFavoritesLimit):
				return fmt.Errorf("favorites full (limit %d); remove one first", c.cfg.Store.FavoritesLimit)
			case err != nil:
				return err
			}
			fmt.Printf("Saved #%d %s\n", fav.Rank, fav.Finding.Blueprint.SolutionName)
			return nil
		},
	}

	rm := &cobra.Command{
		Use:     "remove <analysis-id> <rank>",
		Aliases: []string{"rm"},
		Short:   "Remove a bookmark",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rank, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rank %q is not a number", args[1])
			}
			svc, err := c.service()
			if err != nil {
				return err
			}
			defer svc.Close()
			return svc.RemoveFavorite(cmd.Context(), c.user, args[0], rank)
		},
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List bookmarks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.service()
			if err != nil {
				return err
			}
			defer svc.Close()

			favs, err := svc.Favorites(cmd.Context(), c.user)
			if err != nil {
				return err
			}
			fmt.Print(ui.RenderFavorites(favs))
			return nil
		},
	}

	cmd.AddCommand(add, rm, list)
	return cmd
}
