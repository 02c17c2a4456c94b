package main

import (
	"bufio"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philipp01105/nlogsink/config"
	"github.com/philipp01105/nlogsink/core"
)

type writeOptions struct {
	config   string
	filename string
	format   string
	level    string
	verbose  bool
}

func newWriteCmd(e *env) *cobra.Command {
	var opts writeOptions
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Write stdin lines as log events to a file sink",
		Long: `Write reads lines from stdin and logs each one as an event through a
file handler configured from --config, NLOGSINK_* environment variables
and the flags below.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(e, cmd.InOrStdin(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.config, "config", "c", "", "Configuration file (yaml, toml or json)")
	cmd.Flags().StringVar(&opts.filename, "file", "", "Log file, overrides the configuration")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Serializer format, overrides the configuration")
	cmd.Flags().StringVarP(&opts.level, "level", "l", "info", "Level of the written events")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print driver diagnostics to stderr")
	return cmd
}

func runWrite(e *env, in io.Reader, opts writeOptions) error {
	cfg, err := config.LoadFs(e.fs, opts.config)
	if err != nil {
		return err
	}
	if opts.filename != "" {
		cfg.Filename = opts.filename
	}
	if opts.format != "" {
		cfg.Format = opts.format
	}
	level, ok := core.ParseLevel(opts.level)
	if !ok {
		return errors.Newf("unknown level %q", opts.level)
	}

	zlog := zap.NewNop()
	if opts.verbose {
		if zlog, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer func() { _ = zlog.Sync() }()
	}

	log, err := cfg.NewLogger(e.fs, zlog, nil)
	if err != nil {
		return err
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			log.Log(level, line)
		}
	}
	return errors.CombineErrors(sc.Err(), log.Close())
}
