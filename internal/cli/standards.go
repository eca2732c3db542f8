package cli

import (
	"fmt"
	"strconv"

	"gel-analyzer/internal/standards"

	"github.com/spf13/cobra"
)

var standardsCmd = &cobra.Command{
	Use:   "standards",
	Short: "Manage molecular weight ladder standards",
	Long: `Standards are stored as <name>.marker files, one weight per line, heaviest
first, in the standards directory (GELANALYZER_STANDARDS_DIR or the user
config directory).

Subcommands:
  list  List available standards
  show  Print the weights of a standard
  add   Save a new standard`,
}

var standardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available standards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := standardsStore()
		if err != nil {
			return err
		}
		names, err := store.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No standards in %s\n", store.Dir)
			return nil
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

var standardsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print the weights of a standard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := standardsStore()
		if err != nil {
			return err
		}
		std, err := store.Load(args[0])
		if err != nil {
			return err
		}
		for _, w := range std.Weights {
			fmt.Fprintln(cmd.OutOrStdout(), w)
		}
		return nil
	},
}

var standardsAddCmd = &cobra.Command{
	Use:   "add <name> <weight>...",
	Short: "Save a standard, weights heaviest first",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		std := &standards.Standard{Name: args[0]}
		for _, a := range args[1:] {
			w, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("invalid weight %q: %w", a, err)
			}
			std.Weights = append(std.Weights, w)
		}

		store, err := standardsStore()
		if err != nil {
			return err
		}
		if err := store.Save(std); err != nil {
			return err
		}
		logger.Info("standard saved", "name", std.Name, "weights", len(std.Weights), "path", store.Path(std.Name))
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d weights)\n", std.Name, len(std.Weights))
		return nil
	},
}

func init() {
	standardsCmd.AddCommand(standardsListCmd)
	standardsCmd.AddCommand(standardsShowCmd)
	standardsCmd.AddCommand(standardsAddCmd)
}

func standardsStore() (*standards.Store, error) {
	return standards.NewStore(cfg.Weights.StandardsDir)
}
