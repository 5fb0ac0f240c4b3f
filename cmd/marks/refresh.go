package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nikbrunner/marks/internal/metadata"
	"github.com/nikbrunner/marks/internal/model"
)

var (
	refreshUpdate     bool
	refreshDeleteDead bool
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Check every bookmark URL and report dead links",
	Long: `Fetch every bookmark concurrently. Dead links (404, 410) and unreachable
hosts are reported. With --update, missing descriptions and favicons are
filled in from the fetched pages.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		list, err := c.Bookmarks(ctx)
		if err != nil {
			return err
		}
		bookmarks := make([]model.Bookmark, len(list))
		for i, b := range list {
			bookmarks[i] = b.Bookmark
		}

		errOut := cmd.ErrOrStderr()
		results := metadata.Refresh(ctx, metadata.NewHTTPFetcher(cfg.FetchTimeout), bookmarks, metadata.RefreshOptions{
			Concurrency:    cfg.FetchConcurrency,
			ExcludeDomains: cfg.RefreshExclude,
			OnProgress: func(completed, total int) {
				fmt.Fprintf(errOut, "\rChecked %d/%d", completed, total)
			},
		})
		if len(results) > 0 {
			fmt.Fprintln(errOut)
		}

		var healthy, updated, deleted int
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, r := range results {
			switch r.Status {
			case metadata.Healthy:
				healthy++
				if !refreshUpdate {
					continue
				}
				patch := fillPatch(r.Bookmark, r.Page)
				if patch.Empty() {
					continue
				}
				if _, err := c.UpdateBookmark(ctx, r.Bookmark.ID, patch); err != nil {
					logger.Warn("update from page failed", zap.String("id", r.Bookmark.ID), zap.Error(err))
					continue
				}
				updated++
			case metadata.Dead:
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.Status, r.Bookmark.ID, r.Bookmark.URL, r.StatusCode)
				if refreshDeleteDead {
					if err := c.DeleteBookmark(ctx, r.Bookmark.ID); err != nil {
						return fmt.Errorf("delete %s: %w", r.Bookmark.ID, err)
					}
					deleted++
				}
			default:
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Status, r.Bookmark.ID, r.Bookmark.URL, r.Error)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d healthy", healthy, len(results))
		if refreshUpdate {
			fmt.Fprintf(cmd.OutOrStdout(), ", %d updated", updated)
		}
		if refreshDeleteDead {
			fmt.Fprintf(cmd.OutOrStdout(), ", %d dead deleted", deleted)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshUpdate, "update", false, "fill in missing descriptions and favicons")
	refreshCmd.Flags().BoolVar(&refreshDeleteDead, "delete-dead", false, "delete bookmarks whose URL is gone")
}

// fillPatch sets the fields the bookmark lacks and the page provides.
func fillPatch(b model.Bookmark, page metadata.Page) model.BookmarkPatch {
	var patch model.BookmarkPatch
	if b.Description == nil && page.Description != "" {
		patch.Description = &page.Description
	}
	if b.Favicon == nil && page.Favicon != "" {
		patch.Favicon = &page.Favicon
	}
	return patch
}
