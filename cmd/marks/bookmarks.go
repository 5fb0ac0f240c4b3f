package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/model"
	"github.com/nikbrunner/marks/internal/query"
)

var (
	addTitle       string
	addDescription string
	addNotes       string
	addFolder      string
	addTags        []string
	listFolder     string
	listRoot       bool
	listTag        string
)

var addCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a bookmark",
	Long: `Add a bookmark. Missing title, description and favicon are fetched from
the page when auto_fetch_metadata is enabled in your preferences.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		params := model.NewBookmarkParams{
			URL:         args[0],
			Title:       addTitle,
			Description: optionalFlag(addDescription),
			Notes:       optionalFlag(addNotes),
		}
		if addFolder != "" {
			f, err := resolveFolder(ctx, c, addFolder)
			if err != nil {
				return err
			}
			params.FolderID = &f.ID
		}
		if params.TagIDs, err = resolveTags(ctx, c, addTags); err != nil {
			return err
		}

		b, err := c.CreateBookmark(ctx, params)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), b)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%s)\n", b.Title, b.ID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookmarks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		var bookmarks []model.BookmarkWithRelations
		switch {
		case listRoot:
			bookmarks, err = c.BookmarksInFolder(ctx, nil)
		case listFolder != "":
			f, ferr := resolveFolder(ctx, c, listFolder)
			if ferr != nil {
				return ferr
			}
			bookmarks, err = c.BookmarksInFolder(ctx, &f.ID)
		case listTag != "":
			ids, terr := resolveTags(ctx, c, []string{listTag})
			if terr != nil {
				return terr
			}
			bookmarks, err = c.BookmarksForTag(ctx, ids[0])
		default:
			bookmarks, err = c.Bookmarks(ctx)
		}
		if err != nil {
			return err
		}
		return printBookmarks(cmd.OutOrStdout(), bookmarks)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search bookmark titles, descriptions, URLs and notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		bookmarks, err := c.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printBookmarks(cmd.OutOrStdout(), bookmarks)
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <bookmark-id>...",
	Short: "Delete bookmarks",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := c.DeleteBookmark(ctx, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
		}
		return nil
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <bookmark-id> [tag]...",
	Short: "Replace a bookmark's tags",
	Long:  "Replace a bookmark's tags. Tags are given by name or id; no tags clears them.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		ids, err := resolveTags(ctx, c, args[1:])
		if err != nil {
			return err
		}
		if err := c.SetBookmarkTags(ctx, args[0], ids); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tagged %s with %d tags\n", args[0], len(ids))
		return nil
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <bookmark-id> [folder]",
	Short: "Move a bookmark into a folder, or to the root without one",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		var folderID *string
		if len(args) == 2 {
			f, err := resolveFolder(ctx, c, args[1])
			if err != nil {
				return err
			}
			folderID = &f.ID
		}
		b, err := c.MoveBookmark(ctx, args[0], folderID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moved %q\n", b.Title)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "title (fetched from the page if empty)")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "description")
	addCmd.Flags().StringVarP(&addNotes, "notes", "n", "", "private notes")
	addCmd.Flags().StringVarP(&addFolder, "folder", "f", "", "folder name or id")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "tag name or id (repeatable)")

	listCmd.Flags().StringVarP(&listFolder, "folder", "f", "", "only bookmarks in this folder")
	listCmd.Flags().BoolVar(&listRoot, "root", false, "only bookmarks without a folder")
	listCmd.Flags().StringVar(&listTag, "tag", "", "only bookmarks with this tag")
	listCmd.MarkFlagsMutuallyExclusive("folder", "root", "tag")
}

func optionalFlag(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// resolveFolder finds a folder by id or, failing that, by case-insensitive
// name.
func resolveFolder(ctx context.Context, c *query.Client, ref string) (model.Folder, error) {
	folders, err := c.Folders(ctx)
	if err != nil {
		return model.Folder{}, err
	}
	var matches []model.Folder
	for _, f := range folders {
		if f.ID == ref {
			return f, nil
		}
		if strings.EqualFold(f.Name, ref) {
			matches = append(matches, f)
		}
	}
	switch len(matches) {
	case 0:
		return model.Folder{}, fmt.Errorf("folder %q: %w", ref, model.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return model.Folder{}, fmt.Errorf("folder name %q is ambiguous, use its id", ref)
	}
}

// resolveTags maps tag names or ids to ids.
func resolveTags(ctx context.Context, c *query.Client, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	tags, err := c.Tags(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		found := false
		for _, t := range tags {
			if t.ID == ref || strings.EqualFold(t.Name, ref) {
				ids = append(ids, t.ID)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("tag %q: %w", ref, model.ErrNotFound)
		}
	}
	return ids, nil
}
