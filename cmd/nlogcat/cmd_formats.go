package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newFormatsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the registered serializer formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormats(e, cmd.OutOrStdout())
		},
	}
}

func runFormats(e *env, out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREOPEN")
	for _, name := range e.registry.Names() {
		b, err := e.registry.Builder(name)
		if err != nil {
			return err
		}
		// Building has no side effects; the serializer is discarded unused.
		reopen := b.Build(io.Discard).SupportsReopen()
		fmt.Fprintf(w, "%s\t%t\n", name, reopen)
	}
	return w.Flush()
}
