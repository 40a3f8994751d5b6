package experiment

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const ruleWidth = 70

// Console writes the human-readable training report. It is not a log.
type Console struct {
	w      io.Writer
	green  func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	bold   func(a ...any) string
}

func NewConsole(w io.Writer) *Console {
	return &Console{
		w:      w,
		green:  color.New(color.FgGreen).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
		bold:   color.New(color.Bold).SprintFunc(),
	}
}

func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

func (c *Console) Println(args ...any) {
	fmt.Fprintln(c.w, args...)
}

// Section prints a title between two rules.
func (c *Console) Section(title string) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(c.w, "\n%s\n%s\n%s\n", rule, c.bold(title), rule)
}

func (c *Console) SubSection(title string) {
	rule := strings.Repeat("-", ruleWidth)
	fmt.Fprintf(c.w, "\n%s\n%s\n%s\n", rule, title, rule)
}

func (c *Console) Step(format string, args ...any) {
	fmt.Fprintf(c.w, "\n%s\n", c.cyan(fmt.Sprintf(format, args...)))
}

func (c *Console) Done(format string, args ...any) {
	fmt.Fprintf(c.w, "%s %s\n", c.green("✓"), fmt.Sprintf(format, args...))
}

func (c *Console) Highlight(format string, args ...any) {
	fmt.Fprintln(c.w, c.yellow(fmt.Sprintf(format, args...)))
}

// Thousands formats n with comma separators.
func Thousands(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}
