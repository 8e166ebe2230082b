package diagfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"cellmap/internal/diag"
	"cellmap/internal/source"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	infoColor = color.New(color.FgCyan)
)

// Pretty renders diagnostics in a human-readable form, one per line:
//
//	<path>:<line>:<col>: <SEVERITY> <CODE>: <message>
//
// followed by its notes, indented. Call bag.Sort() first for a stable
// order. A zero Primary span renders without a location prefix.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeOne(w, &d, fs, opts)
	}
}

func writeOne(w io.Writer, d *diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	sev := d.Severity.String()
	if opts.Color {
		switch d.Severity {
		case diag.SevError:
			sev = errColor.Sprint(sev)
		case diag.SevWarning:
			sev = warnColor.Sprint(sev)
		default:
			sev = infoColor.Sprint(sev)
		}
	}
	fmt.Fprintf(w, "%s%s %s: %s\n", locPrefix(fs, d.Primary), sev, d.Code, d.Message)
	for _, n := range d.Notes {
		fmt.Fprintf(w, "  %snote: %s\n", locPrefix(fs, n.Span), n.Msg)
	}
}

func locPrefix(fs *source.FileSet, span source.Span) string {
	if fs == nil || (span == source.Span{}) {
		return ""
	}
	start, _ := fs.Resolve(span)
	return fmt.Sprintf("%s:%d:%d: ", fs.Get(span.File).Path, start.Line, start.Col)
}
