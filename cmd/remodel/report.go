package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"remodel/internal/domain"
)

// reporter prints one coloured line per style as results stream in.
type reporter struct {
	out     io.Writer
	heading *color.Color
	ok      *color.Color
	bad     *color.Color
	dim     *color.Color
}

func newReporter(out io.Writer) *reporter {
	return &reporter{
		out:     out,
		heading: color.New(color.FgCyan, color.Bold),
		ok:      color.New(color.FgGreen),
		bad:     color.New(color.FgRed),
		dim:     color.New(color.FgHiBlack),
	}
}

func (r *reporter) header(photos int, styles []domain.Style, concurrency int) {
	names := make([]string, len(styles))
	for i, s := range styles {
		names[i] = s.String()
	}
	r.heading.Fprintf(r.out, "Remodelling %d photo(s) in %d style(s)\n", photos, len(styles))
	r.dim.Fprintf(r.out, "  %s, %d at a time\n", strings.Join(names, ", "), concurrency)
}

func (r *reporter) done(style domain.Style, path string) {
	r.ok.Fprintf(r.out, "  ✓ %-13s", style)
	r.dim.Fprintf(r.out, " %s\n", path)
}

func (r *reporter) failed(style domain.Style, reason string) {
	r.bad.Fprintf(r.out, "  ✗ %-13s", style)
	fmt.Fprintf(r.out, " %s\n", reason)
}

func (r *reporter) archive(path string, n int) {
	r.dim.Fprintf(r.out, "  wrote %d image(s) to %s\n", n, path)
}

func (r *reporter) summary(done, failed int, elapsed time.Duration) {
	c := r.ok
	if failed > 0 {
		c = color.New(color.FgYellow, color.Bold)
	}
	if done == 0 {
		c = color.New(color.FgRed, color.Bold)
	}
	c.Fprintf(r.out, "%d done, %d failed", done, failed)
	r.dim.Fprintf(r.out, " in %s\n", elapsed.Round(time.Millisecond))
}

func (r *reporter) fatal(err error) {
	r.bad.Fprintf(r.out, "error: %v\n", err)
}
