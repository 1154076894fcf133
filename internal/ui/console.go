package ui

import (
	"fmt"
	"io"
	"strings"

	"vidgrab/internal/catalog"
	"vidgrab/internal/progress"
	"vidgrab/internal/selection"
	"vidgrab/internal/util/format"
)

// Console prints menus and status lines. Results and menus go to Out,
// stage chatter goes to Err so Out stays pipeable.
type Console struct {
	Out    io.Writer
	Err    io.Writer
	styles Styles
}

func NewConsole(out, errw io.Writer) *Console {
	return &Console{Out: out, Err: errw, styles: defaultStyles()}
}

// Menu prints the title followed by one "<ordinal>- <quality> <mime>" line
// per catalog entry.
func (c *Console) Menu(title string, cat catalog.Catalog) {
	fmt.Fprintln(c.Out, c.styles.Title.Render(title))
	for _, line := range selection.Menu(cat) {
		ordinal, rest, _ := strings.Cut(line, " ")
		fmt.Fprintf(c.Out, "%s %s\n", c.styles.Ordinal.Render(ordinal), c.styles.Quality.Render(rest))
	}
}

func (c *Console) Success(msg string) {
	fmt.Fprintln(c.Out, c.styles.Success.Render("✓ "+msg))
}

func (c *Console) Warn(msg string) {
	fmt.Fprintln(c.Err, c.styles.Warning.Render("! "+msg))
}

func (c *Console) Error(err error) {
	fmt.Fprintln(c.Err, c.styles.Error.Render("✗ "+err.Error()))
}

func (c *Console) Info(msg string) {
	fmt.Fprintln(c.Err, c.styles.Subtitle.Render(msg))
}

// Update implements progress.Reporter.
func (c *Console) Update(u progress.Update) {
	if u.Message == "" {
		return
	}
	style := c.styles.Faint
	switch u.Stage {
	case progress.StageMetadata, progress.StageCatalog:
		style = c.styles.StageMeta
	case progress.StageDownloading:
		style = c.styles.StageDL
	case progress.StageCompleted:
		style = c.styles.Success
	case progress.StageError:
		style = c.styles.Error
	}
	fmt.Fprintln(c.Err, style.Render(u.Message))
}

// Result implements progress.Reporter. Failures are left to the caller,
// which decides how to surface them.
func (c *Console) Result(r progress.Result) {
	if r.Err != nil {
		return
	}
	c.Success(fmt.Sprintf("saved %s (%s)", r.OutputPath, format.HumanizeBytes(r.Bytes)))
}
