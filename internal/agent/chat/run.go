package chat

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// reformatPrompt asks the model to rewrite unroutable output into one of the
// structured templates it was shown in the task messages.
const reformatPrompt = "If your question fits one of the JSON templates I gave, rewrite using that format please"

var exitTokens = map[string]struct{}{
	"exit": {},
	"quit": {},
	"q":    {},
	"x":    {},
	"bye":  {},
}

var (
	agentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	humanStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	byeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// IsExitToken reports whether msg ends the interactive loop.
func IsExitToken(msg string) bool {
	_, ok := exitTokens[msg]
	return ok
}

// Run drives the interactive loop. Each iteration first tries to route the
// latest model output to a structured action; when that fails it re-prompts
// the model to reformat (bounded by ReformatRetries) and finally falls back
// to a line of human input. The next message, from whichever source, is
// checked against the exit tokens before being fed back into Respond.
// Model-call errors are not retried here; they end the loop.
func (a *ChatAgent) Run(ctx context.Context) error {
	doc, err := a.Start(ctx)
	if err != nil {
		return err
	}
	llmMsg := doc.Content

	scanner := a.scanner
	if scanner == nil {
		scanner = bufio.NewScanner(a.in)
	}
	for {
		result, handled := a.handleMessage(ctx, llmMsg)
		for retry := 0; !handled && retry < a.cfg.ReformatRetries; retry++ {
			d, err := a.Respond(ctx, reformatPrompt)
			if err != nil {
				return err
			}
			llmMsg = d.Content
			result, handled = a.handleMessage(ctx, llmMsg)
		}

		var msg string
		if handled {
			msg = result
			fmt.Fprintln(a.out, agentStyle.Render("Agent: "+result))
		} else {
			fmt.Fprint(a.out, humanStyle.Render("Human: "))
			if !scanner.Scan() {
				// closed input ends the session like an exit token
				return scanner.Err()
			}
			msg = strings.TrimSpace(scanner.Text())
		}

		if IsExitToken(msg) {
			fmt.Fprintln(a.out, byeStyle.Render("Bye, hope this was useful!"))
			return nil
		}

		d, err := a.Respond(ctx, msg)
		if err != nil {
			return err
		}
		llmMsg = d.Content
	}
}
