package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/model"
)

var (
	folderParent      string
	folderDescription string
	tagColor          string
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders",
}

var folderAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		params := model.NewFolderParams{Name: args[0], Description: optionalFlag(folderDescription)}
		if folderParent != "" {
			p, err := resolveFolder(ctx, c, folderParent)
			if err != nil {
				return err
			}
			params.ParentID = &p.ID
		}
		f, err := c.CreateFolder(ctx, params)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created folder %q (%s)\n", f.Name, f.ID)
		return nil
	},
}

var folderLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List folders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		folders, err := c.Folders(cmd.Context())
		if err != nil {
			return err
		}
		return printFolders(cmd.OutOrStdout(), folders)
	},
}

var folderRmCmd = &cobra.Command{
	Use:   "rm <folder>",
	Short: "Delete an empty folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		f, err := resolveFolder(ctx, c, args[0])
		if err != nil {
			return err
		}
		if err := c.DeleteFolder(ctx, f.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted folder %q\n", f.Name)
		return nil
	},
}

var folderMvCmd = &cobra.Command{
	Use:   "mv <folder> [parent]",
	Short: "Move a folder under another, or to the root without one",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		f, err := resolveFolder(ctx, c, args[0])
		if err != nil {
			return err
		}
		patch := model.FolderPatch{ClearParent: true}
		if len(args) == 2 {
			p, err := resolveFolder(ctx, c, args[1])
			if err != nil {
				return err
			}
			patch = model.FolderPatch{ParentID: &p.ID}
		}
		if _, err := c.UpdateFolder(ctx, f.ID, patch); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moved folder %q\n", f.Name)
		return nil
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage tags",
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		t, err := c.CreateTag(cmd.Context(), model.NewTagParams{Name: args[0], Color: optionalFlag(tagColor)})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created tag %q (%s)\n", t.Name, t.ID)
		return nil
	},
}

var tagsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}
		tags, err := c.Tags(cmd.Context())
		if err != nil {
			return err
		}
		return printTags(cmd.OutOrStdout(), tags)
	},
}

var tagsRmCmd = &cobra.Command{
	Use:   "rm <tag>",
	Short: "Delete a tag and remove it from all bookmarks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := newClient(ctx)
		if err != nil {
			return err
		}
		ids, err := resolveTags(ctx, c, args)
		if err != nil {
			return err
		}
		if err := c.DeleteTag(ctx, ids[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag %q\n", args[0])
		return nil
	},
}

func init() {
	folderAddCmd.Flags().StringVarP(&folderParent, "parent", "p", "", "parent folder name or id")
	folderAddCmd.Flags().StringVarP(&folderDescription, "description", "d", "", "description")
	folderCmd.AddCommand(folderAddCmd, folderLsCmd, folderRmCmd, folderMvCmd)

	tagsAddCmd.Flags().StringVarP(&tagColor, "color", "c", "", "hex color like #3B82F6")
	tagsCmd.AddCommand(tagsAddCmd, tagsLsCmd, tagsRmCmd)
}
