package main

import (
	"os"

	flag "github.com/spf13/pflag"
)

// cliFlags holds all command-line flags.
type cliFlags struct {
	output      string
	config      string
	workers     int
	timeout     string
	cacheDir    string
	sofficeBin  string
	findOrphans bool
	quiet       bool
	verbose     bool
	version     bool
}

// parseFlags parses the command line and returns the flags plus the
// positional input paths.
func parseFlags(args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet("office2pdf", flag.ContinueOnError)
	f := &cliFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output file or directory")
	fs.StringVarP(&f.config, "config", "c", "", "config file path")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel conversion workers (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per-conversion timeout (e.g. 30s, 2m)")
	fs.StringVar(&f.cacheDir, "cache-dir", "", "enable the artifact cache in this directory")
	fs.StringVar(&f.sofficeBin, "soffice-bin", "", "path to the LibreOffice binary")
	fs.BoolVar(&f.findOrphans, "find-orphans", false, "report likely orphaned worker processes and exit")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed progress")
	fs.BoolVar(&f.version, "version", false, "show version and exit")

	fs.Usage = func() { printUsage(os.Stderr) }

	if err := fs.Parse(args[1:]); err != nil {
		return nil, nil, err
	}

	return f, fs.Args(), nil
}
