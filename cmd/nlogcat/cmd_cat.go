package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/serializer/container"
	"github.com/philipp01105/nlogsink/serializer/jsonser"
	"github.com/philipp01105/nlogsink/serializer/textser"
)

// Output modes for cat.
const (
	outputRendered = "rendered"
	outputText     = "text"
	outputJSON     = "json"
)

type catOptions struct {
	format   string
	output   string
	minLevel string
	header   bool
}

// event is one decoded record. Entry is nil for text lines that are not
// JSON layout output.
type event struct {
	entry    *core.Entry
	rendered string
}

func newCatCmd(e *env) *cobra.Command {
	var opts catOptions
	cmd := &cobra.Command{
		Use:   "cat <file>...",
		Short: "Print the events of log files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range args {
				if err := runCat(e, cmd.OutOrStdout(), name, opts); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "auto", "File format (auto, text, json_lines, container)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputRendered, "Output mode (rendered, text, json)")
	cmd.Flags().StringVarP(&opts.minLevel, "level", "l", "", "Only print events at or above this level")
	cmd.Flags().BoolVar(&opts.header, "header", false, "Print the file header before the events")
	return cmd
}

func runCat(e *env, out io.Writer, name string, opts catOptions) error {
	data, err := afero.ReadFile(e.fs, name)
	if err != nil {
		return err
	}

	format := opts.format
	if format == "" || format == "auto" {
		format = detectFormat(data)
	}

	var (
		events []event
		header string
	)
	switch format {
	case container.FormatName:
		f, err := container.Decode(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return errors.Wrapf(err, "%s", name)
		}
		header = fmt.Sprintf("# %s format=%s version=%d id=%s created=%s blocks=%d events=%d",
			name, f.Format, f.Version, f.ID, f.Created.Format(timeLayout), len(f.Blocks), len(f.Events))
		events = lo.Map(f.Events, func(ev container.Event, _ int) event {
			return event{entry: ev.Entry, rendered: ev.Rendered}
		})
	case jsonser.FormatName:
		f, err := jsonser.Decode(bytes.NewReader(data))
		if err != nil {
			return errors.Wrapf(err, "%s", name)
		}
		header = fmt.Sprintf("# %s format=%s version=%d created=%s reopens=%d events=%d",
			name, f.Header.Format, f.Header.Version, f.Header.Created.Format(timeLayout), len(f.Reopens), len(f.Events))
		events = lo.Map(f.Events, func(ev jsonser.Event, _ int) event {
			return event{entry: ev.Entry, rendered: ev.Rendered}
		})
	case textser.FormatName:
		lines, err := textser.ReadLines(bytes.NewReader(data))
		if err != nil {
			return errors.Wrapf(err, "%s", name)
		}
		header = fmt.Sprintf("# %s format=text lines=%d", name, len(lines))
		events = lo.Map(lines, func(line []byte, _ int) event {
			ev := event{rendered: string(line)}
			if entry, err := formatter.ParseJSON(line); err == nil {
				ev.entry = entry
			}
			return ev
		})
	default:
		return errors.Newf("%s: unknown format %q", name, format)
	}

	if opts.minLevel != "" {
		threshold, ok := core.ParseLevel(opts.minLevel)
		if !ok {
			return errors.Newf("unknown level %q", opts.minLevel)
		}
		events = lo.Filter(events, func(ev event, _ int) bool {
			return ev.entry == nil || ev.entry.Level >= threshold
		})
	}

	layout, err := outputLayout(opts.output)
	if err != nil {
		return err
	}
	if opts.header {
		fmt.Fprintln(out, header)
	}
	for _, ev := range events {
		line := ev.rendered
		if layout != nil && ev.entry != nil {
			b, err := layout.Format(ev.entry)
			if err != nil {
				return err
			}
			line = string(b)
		}
		fmt.Fprintln(out, strings.TrimRight(line, "\r\n"))
	}
	return nil
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// detectFormat recognizes container files by their magic and json_lines
// files by their header line. Everything else is text.
func detectFormat(data []byte) string {
	if h, _ := container.Framing(data); h == 1 {
		return container.FormatName
	}
	first := bytes.TrimSpace(data)
	if i := bytes.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	if bytes.HasPrefix(first, []byte(`{"kind":"header"`)) {
		return jsonser.FormatName
	}
	return textser.FormatName
}

// outputLayout returns the formatter used to re-render entries, or nil to
// print what the file stored.
func outputLayout(mode string) (formatter.Formatter, error) {
	switch mode {
	case "", outputRendered:
		return nil, nil
	case outputText:
		return formatter.NewTextFormatter(formatter.Config{}), nil
	case outputJSON:
		return formatter.NewJSONFormatter(formatter.Config{}), nil
	default:
		return nil, errors.Newf("unknown output mode %q", mode)
	}
}
