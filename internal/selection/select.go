// Package selection validates the user's choice of stream ordinal.
package selection

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"vidgrab/internal/catalog"
)

// ErrInvalidSelection is returned for non-numeric or out-of-range ordinals.
var ErrInvalidSelection = errors.New("invalid selection")

// Chooser picks one entry from a catalog.
type Chooser interface {
	Choose(cat catalog.Catalog) (catalog.Entry, error)
}

// Resolve returns the entry for ordinal, which must be within [1, cat.Len()].
func Resolve(cat catalog.Catalog, ordinal int) (catalog.Entry, error) {
	e, ok := cat.Get(ordinal)
	if !ok {
		return catalog.Entry{}, fmt.Errorf("%w: %d is not in [1, %d]", ErrInvalidSelection, ordinal, cat.Len())
	}
	return e, nil
}

// Parse converts a line of user input into a validated entry.
func Parse(cat catalog.Catalog, line string) (catalog.Entry, error) {
	s := strings.TrimSpace(line)
	n, err := strconv.Atoi(s)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("%w: %q is not a number", ErrInvalidSelection, s)
	}
	return Resolve(cat, n)
}

// Menu renders one presentable line per entry, in ordinal order.
func Menu(cat catalog.Catalog) []string {
	lines := make([]string, 0, cat.Len())
	for _, e := range cat.Entries() {
		lines = append(lines, fmt.Sprintf("%d- %s %s", e.Ordinal, e.Quality, e.MimeType))
	}
	return lines
}

// Fixed is a non-interactive choice, typically from a flag.
type Fixed struct {
	Ordinal int
}

func (f Fixed) Choose(cat catalog.Catalog) (catalog.Entry, error) {
	return Resolve(cat, f.Ordinal)
}

// Prompter asks on Out and reads answers from In, one line per attempt.
// MaxAttempts <= 0 keeps asking until a valid answer or end of input.
type Prompter struct {
	In          io.Reader
	Out         io.Writer
	Prompt      string
	MaxAttempts int
	// OnInvalid is called after each rejected answer; defaults to printing
	// the error on Out.
	OnInvalid func(err error)

	sc *bufio.Scanner
}

func (p *Prompter) Choose(cat catalog.Catalog) (catalog.Entry, error) {
	if cat.Len() == 0 {
		return catalog.Entry{}, fmt.Errorf("%w: nothing to choose from", ErrInvalidSelection)
	}
	if p.sc == nil {
		p.sc = bufio.NewScanner(p.In)
	}
	prompt := p.Prompt
	if prompt == "" {
		prompt = "Choose quality: "
	}

	var lastErr error
	for attempt := 1; p.MaxAttempts <= 0 || attempt <= p.MaxAttempts; attempt++ {
		fmt.Fprint(p.Out, prompt)
		if !p.sc.Scan() {
			if err := p.sc.Err(); err != nil {
				return catalog.Entry{}, fmt.Errorf("%w: reading input: %v", ErrInvalidSelection, err)
			}
			return catalog.Entry{}, fmt.Errorf("%w: input closed", ErrInvalidSelection)
		}
		e, err := Parse(cat, p.sc.Text())
		if err == nil {
			return e, nil
		}
		lastErr = err
		p.invalid(err)
	}
	return catalog.Entry{}, fmt.Errorf("gave up after %d attempts: %w", p.MaxAttempts, lastErr)
}

func (p *Prompter) invalid(err error) {
	if p.OnInvalid != nil {
		p.OnInvalid(err)
		return
	}
	fmt.Fprintf(p.Out, "%v, try again\n", err)
}
