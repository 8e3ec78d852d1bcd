package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/PortlandKyGuy/langroid/internal/agent/model"
	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

// ChatAgent owns one conversation transcript and drives turn-taking with a
// chat model. The transcript starts with the task messages and only grows:
// Start appends the first assistant reply, each Respond appends one user and
// one assistant message. A transcript is never shared between agents.
type ChatAgent struct {
	cfg     model.ChatAgentConfig
	llm     einomodel.BaseChatModel
	task    []*schema.Message
	history []*schema.Message
	handler MessageHandler
	in      io.Reader
	scanner *bufio.Scanner
	out     io.Writer
}

// Option customises a ChatAgent at construction time.
type Option func(*ChatAgent)

// WithTask replaces the default single system message with an explicit set of
// task messages. The first message must be a system message.
func WithTask(task []*schema.Message) Option {
	return func(a *ChatAgent) {
		if len(task) > 0 {
			a.task = task
		}
	}
}

// WithScanner makes Run read human input from an existing line scanner. Use
// this when another component already scans the same stream, so one buffer
// serves both and no lines are read ahead and lost.
func WithScanner(sc *bufio.Scanner) Option {
	return func(a *ChatAgent) { a.scanner = sc }
}

// WithHandler installs the structured-action router used by Run.
func WithHandler(h MessageHandler) Option {
	return func(a *ChatAgent) { a.handler = h }
}

// WithIO redirects the human-input source and display output, defaulting to
// stdin/stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *ChatAgent) {
		if in != nil {
			a.in = in
		}
		if out != nil {
			a.out = out
		}
	}
}

// New creates a chat agent. When no task is supplied the transcript is seeded
// with a single system message from the config.
func New(cfg model.ChatAgentConfig, llm einomodel.BaseChatModel, opts ...Option) *ChatAgent {
	sys := cfg.SystemMessage
	if sys == "" {
		sys = "You are a helpful assistant"
	}
	a := &ChatAgent{
		cfg:  cfg,
		llm:  llm,
		task: []*schema.Message{schema.SystemMessage(sys)},
		in:   os.Stdin,
		out:  os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TaskMessages returns the initial transcript prefix.
func (a *ChatAgent) TaskMessages() []*schema.Message {
	out := make([]*schema.Message, len(a.task))
	copy(out, a.task)
	return out
}

// History returns a copy of the live transcript.
func (a *ChatAgent) History() []*schema.Message {
	out := make([]*schema.Message, len(a.history))
	copy(out, a.history)
	return out
}

// Start primes the model with the task messages and initialises the
// transcript with the first assistant reply.
func (a *ChatAgent) Start(ctx context.Context) (*model.Document, error) {
	reply, err := a.respondMessages(ctx, a.task)
	if err != nil {
		return nil, err
	}

	a.history = make([]*schema.Message, 0, len(a.task)+1)
	a.history = append(a.history, a.task...)
	a.history = append(a.history, schema.AssistantMessage(reply.Content, nil))

	doc := model.NewDocument(reply.Content, "llm")
	return &doc, nil
}

// Respond appends a user message, asks the model with the full transcript and
// appends the assistant reply.
func (a *ChatAgent) Respond(ctx context.Context, message string) (*model.Document, error) {
	a.history = append(a.history, schema.UserMessage(message))

	reply, err := a.respondMessages(ctx, a.history)
	if err != nil {
		return nil, err
	}
	a.history = append(a.history, schema.AssistantMessage(reply.Content, nil))

	doc := model.NewDocument(reply.Content, "llm")
	return &doc, nil
}

// respondMessages performs one model call. In streaming mode chunks are
// printed as they arrive and concatenated into the full reply; the stream is
// closed on every exit path so a failed call does not leak it.
func (a *ChatAgent) respondMessages(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	if !a.cfg.Stream {
		reply, err := a.llm.Generate(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}
		return reply, nil
	}

	sr, err := a.llm.Stream(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	defer sr.Close()

	var chunks []*schema.Message
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("model stream failed: %w", err)
		}
		fmt.Fprint(a.out, chunk.Content)
		chunks = append(chunks, chunk)
	}
	fmt.Fprintln(a.out)

	reply, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, fmt.Errorf("concat streamed reply: %w", err)
	}
	return reply, nil
}

// handleMessage routes model output through the installed handler.
func (a *ChatAgent) handleMessage(ctx context.Context, content string) (string, bool) {
	if a.handler == nil {
		return "", false
	}
	result, ok := a.handler.HandleMessage(ctx, content)
	if ok {
		logx.Debug().Str("result", truncate(result, 120)).Msg("model output routed to action")
	}
	return result, ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}
