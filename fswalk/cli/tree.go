package cli

import (
	"bufio"
	"fmt"
	"io"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"
	"github.com/ZanzyTHEbar/fswalk/fswalk/trees"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newTreeCommand(a *app) *cobra.Command {
	var walk walkFlags

	cmd := &cobra.Command{
		Use:   "tree [ROOT]",
		Short: "Print the directory tree below ROOT",
		Long: `tree walks ROOT (default ".") to completion, indexes the result by
path and prints it as an indented tree. Directories are always shown;
--type all adds special files.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := walk.options(cmd, a)
			if err != nil {
				return err
			}
			// nesting is rebuilt from directory entries
			if !opts.Type.WantsDirectories() || !cmd.Flags().Changed("type") {
				opts.Type = types.TypeFilesDirectories
			}

			root := rootArg(args)
			idx, err := filesystem.CollectIndex(cmd.Context(), root, opts)
			if err != nil {
				return err
			}

			out := bufio.NewWriter(cmd.OutOrStdout())
			defer out.Flush()
			printTree(out, root, idx, newPalette(a.useColor(cmd.OutOrStdout())))
			return nil
		},
	}

	walk.register(cmd)
	return cmd
}

type treeCounts struct {
	dirs  int
	files int
}

func printTree(w io.Writer, root string, idx *trees.PathIndex, colors *palette) {
	fmt.Fprintln(w, colors.dir.Sprint(root))

	var counts treeCounts
	printChildren(w, idx, "", "", colors, &counts)

	fmt.Fprintf(w, "\n%s %s, %s %s\n",
		humanize.Comma(int64(counts.dirs)), plural(counts.dirs, "directory", "directories"),
		humanize.Comma(int64(counts.files)), plural(counts.files, "file", "files"))
}

func printChildren(w io.Writer, idx *trees.PathIndex, parent, indent string, colors *palette, counts *treeCounts) {
	children := idx.Children(parent)
	for i, child := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}

		fmt.Fprintln(w, indent+branch+colors.paint(&child, child.Basename))

		if child.Kind != types.KindDirectory {
			counts.files++
			continue
		}
		counts.dirs++
		printChildren(w, idx, child.Path, indent+next, colors, counts)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
