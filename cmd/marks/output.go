package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/nikbrunner/marks/internal/model"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printBookmarks(w io.Writer, bookmarks []model.BookmarkWithRelations) error {
	if flagJSON {
		return printJSON(w, bookmarks)
	}
	if len(bookmarks) == 0 {
		fmt.Fprintln(w, "No bookmarks.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tURL\tFOLDER\tTAGS")
	for _, b := range bookmarks {
		folder := "-"
		if b.Folder != nil {
			folder = b.Folder.Name
		}
		names := make([]string, len(b.Tags))
		for i, t := range b.Tags {
			names[i] = t.Name
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Title, b.URL, folder, strings.Join(names, ","))
	}
	return tw.Flush()
}

func printFolders(w io.Writer, folders []model.Folder) error {
	if flagJSON {
		return printJSON(w, folders)
	}
	if len(folders) == 0 {
		fmt.Fprintln(w, "No folders.")
		return nil
	}

	byID := make(map[string]model.Folder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPARENT")
	for _, f := range folders {
		parent := "-"
		if f.ParentID != nil {
			if p, ok := byID[*f.ParentID]; ok {
				parent = p.Name
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.ID, f.Name, parent)
	}
	return tw.Flush()
}

func printTags(w io.Writer, tags []model.Tag) error {
	if flagJSON {
		return printJSON(w, tags)
	}
	if len(tags) == 0 {
		fmt.Fprintln(w, "No tags.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCOLOR")
	for _, t := range tags {
		color := "-"
		if t.Color != nil {
			color = *t.Color
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Name, color)
	}
	return tw.Flush()
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	}
	if cmd != nil {
		_ = cmd.Start()
	}
}
