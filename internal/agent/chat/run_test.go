package chat

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PortlandKyGuy/langroid/internal/agent/model"
)

// scriptedHandler handles the first n messages, returning canned results.
type scriptedHandler struct {
	results []string
	seen    int
}

func (h *scriptedHandler) HandleMessage(_ context.Context, _ string) (string, bool) {
	if h.seen >= len(h.results) {
		return "", false
	}
	r := h.results[h.seen]
	h.seen++
	return r, true
}

func TestRunExitsOnFirstHumanInput(t *testing.T) {
	var out bytes.Buffer
	stub := &stubModel{}
	agent := New(model.ChatAgentConfig{ReformatRetries: 0}, stub,
		WithIO(strings.NewReader("q\n"), &out))

	err := agent.Run(context.Background())
	require.NoError(t, err)

	// only the Start call; the exit token never reaches the model
	assert.Equal(t, 1, stub.calls)
	assert.Contains(t, out.String(), "Bye")
}

func TestRunReformatRetryBeforeHumanFallback(t *testing.T) {
	var out bytes.Buffer
	stub := &stubModel{}
	agent := New(model.ChatAgentConfig{ReformatRetries: 1}, stub,
		WithIO(strings.NewReader("exit\n"), &out))

	err := agent.Run(context.Background())
	require.NoError(t, err)

	// Start plus exactly one reformat re-prompt before the human fallback
	require.Equal(t, 2, stub.calls)
	last := stub.inputs[1]
	assert.Equal(t, reformatPrompt, last[len(last)-1].Content)
}

func TestRunRoutesHandledResultBackToModel(t *testing.T) {
	var out bytes.Buffer
	stub := &stubModel{}
	handler := &scriptedHandler{results: []string{"passage about France"}}
	agent := New(model.ChatAgentConfig{ReformatRetries: 0}, stub,
		WithHandler(handler),
		WithIO(strings.NewReader("q\n"), &out))

	err := agent.Run(context.Background())
	require.NoError(t, err)

	// Start, then the handled result fed back through Respond
	assert.Equal(t, 2, stub.calls)
	assert.Contains(t, out.String(), "Agent: passage about France")

	history := agent.History()
	var sawResult bool
	for _, m := range history {
		if m.Content == "passage about France" {
			sawResult = true
		}
	}
	assert.True(t, sawResult, "handled result should enter the transcript")
}

func TestRunStopsWhenHandledResultIsExitToken(t *testing.T) {
	var out bytes.Buffer
	stub := &stubModel{}
	handler := &scriptedHandler{results: []string{"bye"}}
	agent := New(model.ChatAgentConfig{ReformatRetries: 0}, stub,
		WithHandler(handler),
		WithIO(strings.NewReader(""), &out))

	err := agent.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
}

func TestRunStopsOnModelError(t *testing.T) {
	var out bytes.Buffer
	modelErr := errors.New("model unavailable")
	stub := &stubModel{errOn: 2, err: modelErr}
	agent := New(model.ChatAgentConfig{ReformatRetries: 0}, stub,
		WithIO(strings.NewReader("hello\nq\n"), &out))

	err := agent.Run(context.Background())
	require.ErrorIs(t, err, modelErr)

	// the failed Respond ends the loop; no retry, no further input read
	assert.Equal(t, 2, stub.calls)
	assert.NotContains(t, out.String(), "Bye")
}

func TestRunStopsOnReformatError(t *testing.T) {
	var out bytes.Buffer
	modelErr := errors.New("model unavailable")
	stub := &stubModel{errOn: 2, err: modelErr}
	agent := New(model.ChatAgentConfig{ReformatRetries: 3}, stub,
		WithIO(strings.NewReader("q\n"), &out))

	err := agent.Run(context.Background())
	require.ErrorIs(t, err, modelErr)

	// a failed reformat re-prompt is not retried
	assert.Equal(t, 2, stub.calls)
}

func TestRunSharesProvidedScanner(t *testing.T) {
	var out bytes.Buffer
	sc := bufio.NewScanner(strings.NewReader("first answer\nq\n"))
	require.True(t, sc.Scan()) // another prompt already consumed a line

	stub := &stubModel{}
	agent := New(model.ChatAgentConfig{ReformatRetries: 0}, stub,
		WithIO(strings.NewReader(""), &out),
		WithScanner(sc))

	err := agent.Run(context.Background())
	require.NoError(t, err)

	// the loop read "q" from the shared scanner, not from its own reader
	assert.Equal(t, 1, stub.calls)
	assert.Contains(t, out.String(), "Bye")
}

func TestIsExitToken(t *testing.T) {
	for _, token := range []string{"exit", "quit", "q", "x", "bye"} {
		assert.True(t, IsExitToken(token), token)
	}
	assert.False(t, IsExitToken("continue"))
	assert.False(t, IsExitToken(""))
}
