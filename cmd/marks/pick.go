package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/marks/internal/picker"
	"github.com/nikbrunner/marks/internal/search"
)

var pickPrint bool

var pickCmd = &cobra.Command{
	Use:   "pick [query]",
	Short: "Search interactively and open the chosen bookmark",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd.Context())
		if err != nil {
			return err
		}

		p := picker.New(c, picker.Options{
			Query:  strings.Join(args, " "),
			Engine: search.Options{Delay: cfg.SearchDelay},
			Logger: logger,
		})
		finalModel, err := tea.NewProgram(p, tea.WithContext(cmd.Context())).Run()
		if err != nil {
			return fmt.Errorf("run picker: %w", err)
		}

		selected := finalModel.(picker.Picker).SelectedBookmark()
		if selected == nil {
			return nil
		}
		if pickPrint {
			fmt.Fprintln(cmd.OutOrStdout(), selected.URL)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Opening: %s\n", selected.Title)
		openURL(selected.URL)
		return nil
	},
}

func init() {
	pickCmd.Flags().BoolVarP(&pickPrint, "print", "p", false, "print the URL instead of opening it")
}
