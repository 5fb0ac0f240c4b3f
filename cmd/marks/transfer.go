package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/exporter"
	"github.com/nikbrunner/marks/internal/importer"
)

var exportFormat string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import bookmarks from a JSON export or a browser HTML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()

		records, err := importer.Parse(filepath.Base(args[0]), file)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		result, err := c.Import(ctx, records)
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d bookmarks, created %d tags", len(result.Bookmarks), result.TagsCreated)
		if result.TagErrors > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), " (%d tag errors, see log)", result.TagErrors)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Export bookmarks as JSON or Netscape HTML",
	Long: `Export bookmarks. Without a path the file is written to
~/Downloads/bookmarks-export-YYYY-MM-DD.<format>; "-" writes to stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var outputPath string
		if len(args) == 1 {
			outputPath = args[0]
		} else {
			p, err := exporter.DefaultExportPath(exportFormat, time.Now())
			if err != nil {
				return err
			}
			outputPath = p
		}

		c, err := newClient(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if outputPath != "-" {
			if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
				return err
			}
			f, err := os.Create(outputPath)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		var count int
		switch exportFormat {
		case exporter.FormatJSON:
			doc, err := c.Export(ctx)
			if err != nil {
				return err
			}
			if err := exporter.WriteJSON(out, doc); err != nil {
				return err
			}
			count = len(doc.Bookmarks)
		case exporter.FormatHTML:
			snap, err := c.Snapshot(ctx)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprint(out, exporter.ExportHTML(snap)); err != nil {
				return err
			}
			count = len(snap.Bookmarks)
		default:
			return fmt.Errorf("unknown export format %q", exportFormat)
		}

		if outputPath != "-" {
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d bookmarks to %s\n", count, outputPath)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", exporter.FormatJSON, "export format: json or html")
}
