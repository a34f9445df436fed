package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/options"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// rootCount is the tally for one traversal root
type rootCount struct {
	Root        string        `json:"root" yaml:"root"`
	Files       int64         `json:"files" yaml:"files"`
	Directories int64         `json:"directories" yaml:"directories"`
	Other       int64         `json:"other" yaml:"other"`
	Bytes       int64         `json:"bytes,omitempty" yaml:"bytes,omitempty"`
	Warnings    int64         `json:"warnings" yaml:"warnings"`
	Duration    time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

func (c *rootCount) add(e *types.Entry) {
	switch e.Kind {
	case types.KindDirectory:
		c.Directories++
	case types.KindFile:
		c.Files++
	default:
		c.Other++
	}
	if e.Stats != nil && e.Kind == types.KindFile {
		c.Bytes += e.Size()
	}
}

func newCountCommand(a *app) *cobra.Command {
	var (
		walk   walkFlags
		jobs   int
		format string
	)

	cmd := &cobra.Command{
		Use:   "count ROOT...",
		Short: "Count entries below one or more roots",
		Long: `count walks every ROOT concurrently and reports how many files,
directories and other entries each contains. With --stat the total size
of regular files is reported as well.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := walk.options(cmd, a)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("type") {
				opts.Type = types.TypeFilesDirectories
			}
			if format == "" {
				format = a.cfg.Output.Format
			}

			counts, err := countRoots(cmd.Context(), args, opts, jobs)
			if err != nil {
				return err
			}
			return writeCounts(cmd.OutOrStdout(), format, counts)
		},
	}

	walk.register(cmd)
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "roots walked at the same time")
	cmd.Flags().StringVarP(&format, "format", "o", "", "output format: text, json, yaml")
	return cmd
}

// countRoots walks each root in its own goroutine. The first fatal error
// cancels the remaining walks.
func countRoots(ctx context.Context, roots []string, opts options.TraversalOptions, jobs int) ([]rootCount, error) {
	counts := make([]rootCount, len(roots))

	g, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, root := range roots {
		g.Go(func() error {
			c, err := countRoot(ctx, root, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", root, err)
			}
			counts[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

func countRoot(ctx context.Context, root string, opts options.TraversalOptions) (rootCount, error) {
	c := rootCount{Root: root}

	s, err := filesystem.New(root, opts)
	if err != nil {
		return c, err
	}
	defer s.Close()

	for {
		entries, err := s.Read(ctx, 0)
		for i := range entries {
			c.add(&entries[i])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return c, err
		}
	}

	stats := s.Stats()
	c.Warnings = stats.Warnings
	c.Duration = stats.Duration()
	return c, nil
}

func writeCounts(w io.Writer, format string, counts []rootCount) error {
	switch format {
	case "", "text":
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(counts)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(counts)
	default:
		return fmt.Errorf("invalid --format %q: want text, json or yaml", format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROOT\tFILES\tDIRS\tOTHER\tSIZE\tWARNINGS\tTIME")

	var total rootCount
	for _, c := range counts {
		writeCountRow(tw, c)
		total.Files += c.Files
		total.Directories += c.Directories
		total.Other += c.Other
		total.Bytes += c.Bytes
		total.Warnings += c.Warnings
		total.Duration = max(total.Duration, c.Duration)
	}
	if len(counts) > 1 {
		total.Root = "total"
		writeCountRow(tw, total)
	}
	return tw.Flush()
}

func writeCountRow(w io.Writer, c rootCount) {
	size := "-"
	if c.Bytes > 0 {
		size = humanize.IBytes(uint64(c.Bytes))
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
		c.Root,
		humanize.Comma(c.Files),
		humanize.Comma(c.Directories),
		humanize.Comma(c.Other),
		size,
		c.Warnings,
		c.Duration.Round(time.Millisecond))
}
