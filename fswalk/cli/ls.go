package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem"
	"github.com/ZanzyTHEbar/fswalk/fswalk/filesystem/types"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type lsOptions struct {
	walk   walkFlags
	format string
	long   bool
}

func newLsCommand(a *app) *cobra.Command {
	o := &lsOptions{}

	cmd := &cobra.Command{
		Use:   "ls [ROOT]",
		Short: "Stream the entries below a directory",
		Long: `ls walks ROOT (default ".") and prints entries as they are found.

Warnings about unreadable directories or broken symlinks go to stderr
and do not stop the walk.`,
		Example: `  fswalk ls . --file-filter '*.go,!*_test.go' --dir-filter '!vendor'
  fswalk ls /var/log --type all --depth 1 --long
  fswalk ls src --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(cmd, a, o, rootArg(args))
		},
	}

	o.walk.register(cmd)
	cmd.Flags().StringVarP(&o.format, "format", "o", "", "output format: text, json, yaml")
	cmd.Flags().BoolVarP(&o.long, "long", "l", false, "show mode, size and modification time")
	return cmd
}

func rootArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

func runLs(cmd *cobra.Command, a *app, o *lsOptions, root string) error {
	opts, err := o.walk.options(cmd, a)
	if err != nil {
		return err
	}
	if o.long {
		opts.AlwaysStat = true
	}

	format := a.cfg.Output.Format
	if o.format != "" {
		format = o.format
	}

	out := bufio.NewWriter(cmd.OutOrStdout())
	defer out.Flush()

	colors := newPalette(a.useColor(cmd.OutOrStdout()))
	errColors := newPalette(a.useColor(cmd.ErrOrStderr()))

	w, err := newEntryWriter(format, out, colors, o.long)
	if err != nil {
		return err
	}

	s, err := filesystem.New(root, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	for ev := range s.Events(cmd.Context()) {
		switch ev.Type {
		case types.EventData:
			if err := w.Write(&ev.Entry); err != nil {
				return err
			}
		case types.EventWarn:
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v\n", errColors.warn.Sprint("warning:"), ev.Err)
		case types.EventError:
			return ev.Err
		}
	}
	if err := cmd.Context().Err(); err != nil {
		return err
	}
	return w.Close()
}

// entryWriter renders entries in one output format
type entryWriter interface {
	Write(e *types.Entry) error
	Close() error
}

func newEntryWriter(format string, w io.Writer, colors *palette, long bool) (entryWriter, error) {
	switch format {
	case "", "text":
		return &textWriter{w: w, colors: colors, long: long}, nil
	case "json":
		return &jsonWriter{enc: json.NewEncoder(w), long: long}, nil
	case "yaml":
		return &yamlWriter{enc: yaml.NewEncoder(w), long: long}, nil
	default:
		return nil, fmt.Errorf("invalid --format %q: want text, json or yaml", format)
	}
}

type textWriter struct {
	w      io.Writer
	colors *palette
	long   bool
}

func (t *textWriter) Write(e *types.Entry) error {
	name := t.colors.paint(e, filepath.ToSlash(e.Path))
	if !t.long {
		_, err := fmt.Fprintln(t.w, name)
		return err
	}
	size := "-"
	if e.Stats != nil {
		size = humanize.IBytes(uint64(max(e.Size(), 0)))
	}
	modified := "-"
	if !e.ModTime().IsZero() {
		modified = e.ModTime().Format("2006-01-02 15:04")
	}
	_, err := fmt.Fprintf(t.w, "%s %9s %s %s\n", e.Mode(), size, modified, name)
	return err
}

func (t *textWriter) Close() error { return nil }

// paint colors a name by what the entry resolved to
func (p *palette) paint(e *types.Entry, name string) string {
	switch {
	case e.IsSymlink():
		return p.symlink.Sprint(name)
	case e.Kind == types.KindDirectory:
		return p.dir.Sprint(name)
	case e.Kind == types.KindOther:
		return p.other.Sprint(name)
	default:
		return name
	}
}

// record is the structured form of an entry for json and yaml output
type record struct {
	Path     string     `json:"path" yaml:"path"`
	FullPath string     `json:"full_path" yaml:"full_path"`
	Basename string     `json:"basename" yaml:"basename"`
	Depth    int        `json:"depth" yaml:"depth"`
	Kind     string     `json:"kind" yaml:"kind"`
	Symlink  bool       `json:"symlink,omitempty" yaml:"symlink,omitempty"`
	Mode     string     `json:"mode,omitempty" yaml:"mode,omitempty"`
	Size     *int64     `json:"size,omitempty" yaml:"size,omitempty"`
	ModTime  *time.Time `json:"mod_time,omitempty" yaml:"mod_time,omitempty"`
}

func newRecord(e *types.Entry, long bool) record {
	r := record{
		Path:     filepath.ToSlash(e.Path),
		FullPath: e.FullPath,
		Basename: e.Basename,
		Depth:    e.Depth,
		Kind:     e.Kind.String(),
		Symlink:  e.IsSymlink(),
	}
	if long && e.Stats != nil {
		size := e.Size()
		modified := e.ModTime()
		r.Mode = e.Mode().String()
		r.Size = &size
		r.ModTime = &modified
	}
	return r
}

// jsonWriter writes one JSON object per line
type jsonWriter struct {
	enc  *json.Encoder
	long bool
}

func (j *jsonWriter) Write(e *types.Entry) error { return j.enc.Encode(newRecord(e, j.long)) }
func (j *jsonWriter) Close() error               { return nil }

// yamlWriter writes one YAML document per entry
type yamlWriter struct {
	enc  *yaml.Encoder
	long bool
}

func (y *yamlWriter) Write(e *types.Entry) error { return y.enc.Encode(newRecord(e, y.long)) }
func (y *yamlWriter) Close() error               { return y.enc.Close() }
