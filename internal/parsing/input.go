package parsing

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))

// Prompter reads interactive answers from a line-oriented input.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Scanner exposes the underlying line scanner so other readers of the same
// input share its buffer instead of racing it for lines.
func (p *Prompter) Scanner() *bufio.Scanner {
	return p.in
}

// Ask prompts for one line, returning def when the answer is blank or the
// input is closed.
func (p *Prompter) Ask(msg, def string) string {
	if def != "" {
		msg = fmt.Sprintf("%s [%s]", msg, def)
	}
	fmt.Fprint(p.out, promptStyle.Render(msg)+" ")
	if !p.in.Scan() {
		return def
	}
	answer := strings.TrimSpace(p.in.Text())
	if answer == "" {
		return def
	}
	return answer
}

// AskChoice re-prompts until the answer is one of choices; blank selects def.
func (p *Prompter) AskChoice(msg string, choices []string, def string) string {
	suffix := fmt.Sprintf("(%s)", strings.Join(choices, "/"))
	for {
		answer := p.Ask(msg+" "+suffix, def)
		for _, c := range choices {
			if answer == c {
				return answer
			}
		}
		if answer == def {
			return def
		}
	}
}

// List prompts repeatedly until "done" or a blank line, or until n answers
// have been collected when n > 0. Duplicates are dropped, entry order kept.
func (p *Prompter) List(msg string, n int) []string {
	if msg == "" {
		msg = "Enter input (type 'done' or hit return to finish)"
	}

	seen := make(map[string]struct{})
	var items []string
	for {
		answer := p.Ask(msg, "")
		if answer == "" || strings.EqualFold(answer, "done") {
			break
		}
		if _, dup := seen[answer]; !dup {
			seen[answer] = struct{}{}
			items = append(items, answer)
		}
		if n > 0 && len(items) == n {
			break
		}
	}
	return items
}
