package cli

import (
	"fmt"
	"os"

	"gel-analyzer/internal/export"
	"gel-analyzer/internal/phylo"

	"github.com/spf13/cobra"
)

var (
	treeFromMethod string
	treeShow       string
	treeLabels     []string
)

var treeCmd = &cobra.Command{
	Use:   "tree <matrix.txt>",
	Short: "Build a similarity tree from a saved match matrix",
	Long: `Read a match matrix (one cluster per line, 0/1 or +/- entries, one column
per lane) and print the tree in Newick format.

Examples:
  gelanalyzer tree matrix.txt
  gelanalyzer tree matrix.txt --method upgma
  gelanalyzer tree matrix.txt --show distance`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func init() {
	treeCmd.Flags().StringVar(&treeFromMethod, "method", "", "tree method (nj, single, complete, upgma, wpgma)")
	treeCmd.Flags().StringVar(&treeShow, "show", "tree", "what to print (tree, similarity, distance)")
	treeCmd.Flags().StringSliceVar(&treeLabels, "labels", nil, "lane names in lane order, empty entries keep the default")
}

func runTree(cmd *cobra.Command, args []string) error {
	method := cfg.TreeMethod()
	if treeFromMethod != "" {
		m, err := phylo.ParseMethod(treeFromMethod)
		if err != nil {
			return err
		}
		method = m
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open match matrix: %w", err)
	}
	defer f.Close()

	m, err := export.ReadMatchMatrix(f)
	if err != nil {
		return err
	}
	sim, err := phylo.Similarity(m)
	if err != nil {
		return err
	}
	dist := phylo.Distance(sim)

	w := cmd.OutOrStdout()
	switch treeShow {
	case "similarity":
		return export.WriteMatrix(w, sim)
	case "distance":
		return export.WriteMatrix(w, dist)
	case "tree":
	default:
		return fmt.Errorf("unknown --show value %q", treeShow)
	}

	tree, err := phylo.Build(dist, method)
	if err != nil {
		return err
	}
	logger.Info("tree built", "method", method.String(), "leaves", tree.Leaves, "clusters", m.Rows())
	names := cfg.Tree.Labels
	if cmd.Flags().Changed("labels") {
		names = treeLabels
	}
	return export.WriteNewick(w, tree, phylo.LaneLabels(m.Lanes, names...))
}
