package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/philipp01105/nlogsink/serializer"
	"github.com/philipp01105/nlogsink/serializer/formats"
)

// env is what the commands read from and write to.
type env struct {
	fs       afero.Fs
	registry *serializer.Registry
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&env{fs: afero.NewOsFs(), registry: formats.Default()})
}

func newRootCmdWith(e *env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nlogcat",
		Short: "nlogcat inspects log files written by nlogsink serializers",
		Long: `nlogcat inspects log files written by nlogsink serializers.
It detects text, json_lines and container files and prints their events.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newFormatsCmd(e), newCatCmd(e), newWriteCmd(e))
	return rootCmd
}
