// Package report renders run progress and final programs for people.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"bfevolve/internal/evo"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const DefaultWidth = 80

// Printer writes one progress line per reported generation. On a terminal
// the line is redrawn in place.
type Printer struct {
	w           io.Writer
	every       int
	interactive bool
	lastWidth   int
	pending     bool
	// skipped holds the latest report that fell between intervals.
	skipped *evo.GenerationReport
}

// NewPrinter reports every Nth generation; values below one report all.
func NewPrinter(w io.Writer, every int) *Printer {
	if every < 1 {
		every = 1
	}
	return &Printer{w: w, every: every, interactive: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) ObserveGeneration(r evo.GenerationReport) {
	if r.Diagnostics.Generation%p.every != 0 && r.Best.Fitness() != 0 {
		p.skipped = &r
		return
	}
	p.skipped = nil
	p.print(r)
}

func (p *Printer) print(r evo.GenerationReport) {
	line := FormatGeneration(r)
	if !p.interactive {
		fmt.Fprintln(p.w, line)
		return
	}
	pad := ""
	if n := p.lastWidth - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(p.w, "\r%s%s", line, pad)
	p.lastWidth = len(line)
	p.pending = true
}

// Done prints the final generation if its interval skipped it, then ends an
// in-place progress line so later output starts on its own line.
func (p *Printer) Done() {
	if p.skipped != nil {
		p.print(*p.skipped)
		p.skipped = nil
	}
	if p.pending {
		fmt.Fprintln(p.w)
		p.pending = false
	}
}

func FormatGeneration(r evo.GenerationReport) string {
	return fmt.Sprintf("gen=%s best=%s len=%d %s",
		humanize.Comma(int64(r.Diagnostics.Generation)),
		FormatFitness(r.Diagnostics.BestFitness),
		r.Diagnostics.BestLength,
		Describe(r.Best),
	)
}

func FormatFitness(f uint64) string {
	if f > 1<<62 {
		return "penalty"
	}
	return humanize.Comma(int64(f))
}

// Describe renders an individual's outcome: its quoted output, or the
// error kind when execution failed.
func Describe(ind evo.Individual) string {
	if execErr := ind.Err(); execErr != nil {
		return "error=" + execErr.Kind.String()
	}
	return "output=" + strconv.Quote(string(ind.Output()))
}

// FormatProgram drops filler genes and breaks the remaining text every width
// columns.
func FormatProgram(program []byte, filler byte, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	var b strings.Builder
	column := 0
	for _, gene := range program {
		if gene == filler {
			continue
		}
		if column == width {
			b.WriteByte('\n')
			column = 0
		}
		b.WriteByte(gene)
		column++
	}
	return b.String()
}
