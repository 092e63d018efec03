package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/srg/hrmon/internal/heartrate"
	"github.com/srg/hrmon/internal/trial"
)

const birthLayout = "2006-01-02"

var zoneColors = map[trial.Position]*color.Color{
	trial.Below:  color.New(color.FgCyan),
	trial.Within: color.New(color.FgGreen, color.Bold),
	trial.Above:  color.New(color.FgRed, color.Bold),
}

// formatReading renders a status line; "--" stands for no usable value
func formatReading(st heartrate.Status, zone *trial.Zone) string {
	if !st.HasSample() || st.Value == 0 {
		return "HR: -- bpm"
	}
	text := fmt.Sprintf("HR: %d bpm", st.Value)
	if zone == nil {
		return text
	}
	return zoneColors[zone.Classify(st.Value)].Sprint(text)
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// linePrinter redraws one line on a terminal and appends lines elsewhere
type linePrinter struct {
	w    io.Writer
	live bool
}

func newLinePrinter(w io.Writer) *linePrinter {
	return &linePrinter{w: w, live: isTerminal(w)}
}

func (p *linePrinter) Print(line string) {
	if p.live {
		fmt.Fprint(p.w, clearLineSequence+line)
		return
	}
	fmt.Fprintln(p.w, line)
}

// Done ends a live line so later output starts on a fresh one
func (p *linePrinter) Done() {
	if p.live {
		fmt.Fprintln(p.w)
	}
}

// resolveZone derives the target zone from --age/--birth and --rest.
// No resting rate means no zone.
func resolveZone(age int, birth string, rest float64, now time.Time) (*trial.Zone, error) {
	if rest <= 0 {
		if age > 0 || birth != "" {
			return nil, fmt.Errorf("--rest is required to compute the target zone")
		}
		return nil, nil
	}
	if birth != "" {
		if age > 0 {
			return nil, fmt.Errorf("use either --age or --birth, not both")
		}
		born, err := time.Parse(birthLayout, birth)
		if err != nil {
			return nil, fmt.Errorf("invalid --birth %q: want YYYY-MM-DD", birth)
		}
		age = trial.AgeAt(born, now)
	}
	if age <= 0 {
		return nil, fmt.Errorf("--age or --birth is required with --rest")
	}

	zone, err := trial.TargetZone(age, rest)
	if err != nil {
		return nil, err
	}
	return &zone, nil
}
