package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/learntrack/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the course catalog",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a catalog file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.CatalogPath
		if len(args) == 1 {
			path = args[0]
		}

		cat, err := catalog.Load(path)
		if err != nil {
			return err
		}

		var topics, lessons, drafts int
		for _, m := range cat.Modules() {
			topics += len(m.Topics)
			for _, t := range m.Topics {
				for _, l := range t.Lessons {
					lessons++
					if !l.Published {
						drafts++
					}
				}
			}
		}
		fmt.Printf("%s: ok (%d modules, %d topics, %d lessons, %d unpublished)\n",
			path, len(cat.Modules()), topics, lessons, drafts)
		return nil
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List modules, topics and lessons",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return err
		}
		drafts, _ := cmd.Flags().GetBool("drafts")

		for i, m := range cat.Modules() {
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("%s  %s\n", m.ID, m.Title)
			fmt.Println(strings.Repeat("─", 90))
			for _, t := range m.Topics {
				fmt.Printf("  %s  %s\n", t.ID, t.Title)
				for _, l := range t.Lessons {
					if !l.Published && !drafts {
						continue
					}
					title := l.Title
					if len(title) > 30 {
						title = title[:27] + "..."
					}
					state := ""
					if !l.Published {
						state = "draft"
					}
					fmt.Printf("    %s  %-30s  %-13s  %s\n", l.ID, title, l.Type, state)
				}
			}
		}
		return nil
	},
}

func init() {
	catalogListCmd.Flags().Bool("drafts", false, "Include unpublished lessons")

	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogListCmd)
}
