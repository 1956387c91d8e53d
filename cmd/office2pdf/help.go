package main

import (
	"fmt"
	"io"
)

// printUsage prints the usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: office2pdf [flags] <input>...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert office documents, HTML, and markdown to PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  input    Files to convert (.doc, .docx, .xls, .xlsx, .ppt, .pptx,")
	fmt.Fprintln(w, "           .odt, .ods, .odp, .rtf, .txt, .html, .htm, .md, .markdown)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -o, --output <path>      Output file (single input) or directory")
	fmt.Fprintln(w, "  -c, --config <path>      YAML config file")
	fmt.Fprintln(w, "  -w, --workers <n>        Parallel conversion workers (0 = auto)")
	fmt.Fprintln(w, "  -t, --timeout <dur>      Per-conversion timeout (e.g. 30s, 2m)")
	fmt.Fprintln(w, "      --cache-dir <path>   Enable the artifact cache in this directory")
	fmt.Fprintln(w, "      --soffice-bin <path> Path to the LibreOffice binary")
	fmt.Fprintln(w, "      --find-orphans       Report likely orphaned worker processes and exit")
	fmt.Fprintln(w, "  -q, --quiet              Only show errors")
	fmt.Fprintln(w, "  -v, --verbose            Show detailed progress")
	fmt.Fprintln(w, "      --version            Show version and exit")
}
