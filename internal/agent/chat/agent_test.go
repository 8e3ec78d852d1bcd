package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PortlandKyGuy/langroid/internal/agent/model"
)

// stubModel is a scripted chat model. It replays replies in order, repeating
// the last one, and records every transcript it was sent. When errOn is set
// the errOn-th call fails with err instead of replying.
type stubModel struct {
	replies []string
	calls   int
	inputs  [][]*schema.Message
	chunks  [][]string
	errOn   int
	err     error
}

func (s *stubModel) reply() string {
	if len(s.replies) == 0 {
		return "OK"
	}
	i := s.calls - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return s.replies[i]
}

func (s *stubModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	s.calls++
	s.inputs = append(s.inputs, input)
	if s.errOn == s.calls && s.err != nil {
		return nil, s.err
	}
	return schema.AssistantMessage(s.reply(), nil), nil
}

func (s *stubModel) Stream(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	s.calls++
	s.inputs = append(s.inputs, input)
	if s.errOn == s.calls && s.err != nil {
		return nil, s.err
	}

	var parts []string
	if len(s.chunks) > 0 {
		parts = s.chunks[0]
	} else {
		parts = []string{s.reply()}
	}
	msgs := make([]*schema.Message, 0, len(parts))
	for _, p := range parts {
		msgs = append(msgs, schema.AssistantMessage(p, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func TestStartInitialisesTranscript(t *testing.T) {
	stub := &stubModel{replies: []string{"OK"}}
	agent := New(model.ChatAgentConfig{SystemMessage: "You are a helpful assistant"}, stub)

	doc, err := agent.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OK", doc.Content)
	assert.NotEmpty(t, doc.Metadata.ID)

	history := agent.History()
	require.Len(t, history, 2)
	assert.Equal(t, schema.System, history[0].Role)
	assert.Equal(t, "You are a helpful assistant", history[0].Content)
	assert.Equal(t, schema.Assistant, history[1].Role)
	assert.Equal(t, "OK", history[1].Content)
}

func TestRespondGrowsTranscriptByTwo(t *testing.T) {
	stub := &stubModel{}
	agent := New(model.ChatAgentConfig{}, stub)

	_, err := agent.Start(context.Background())
	require.NoError(t, err)

	const n = 4
	for i := 0; i < n; i++ {
		_, err := agent.Respond(context.Background(), fmt.Sprintf("question %d", i))
		require.NoError(t, err)
	}

	task := agent.TaskMessages()
	assert.Len(t, agent.History(), len(task)+1+2*n)
}

func TestRespondSendsFullHistory(t *testing.T) {
	stub := &stubModel{replies: []string{"first", "second"}}
	agent := New(model.ChatAgentConfig{}, stub)

	_, err := agent.Start(context.Background())
	require.NoError(t, err)
	_, err = agent.Respond(context.Background(), "hello")
	require.NoError(t, err)

	require.Len(t, stub.inputs, 2)
	// second call sees task + first assistant reply + new user message
	sent := stub.inputs[1]
	require.Len(t, sent, 3)
	assert.Equal(t, schema.User, sent[2].Role)
	assert.Equal(t, "hello", sent[2].Content)
}

func TestWithTaskOverridesDefault(t *testing.T) {
	task := []*schema.Message{
		schema.SystemMessage("You are a pirate"),
		schema.UserMessage("introduce yourself"),
	}
	stub := &stubModel{}
	agent := New(model.ChatAgentConfig{}, stub, WithTask(task))

	_, err := agent.Start(context.Background())
	require.NoError(t, err)

	history := agent.History()
	require.Len(t, history, 3)
	assert.Equal(t, "You are a pirate", history[0].Content)
}

func TestStartPropagatesModelError(t *testing.T) {
	modelErr := errors.New("model unavailable")
	stub := &stubModel{errOn: 1, err: modelErr}
	agent := New(model.ChatAgentConfig{}, stub)

	_, err := agent.Start(context.Background())
	require.ErrorIs(t, err, modelErr)
	assert.Equal(t, 1, stub.calls)
	assert.Empty(t, agent.History())
}

func TestRespondPropagatesModelErrorKeepsUserMessage(t *testing.T) {
	modelErr := errors.New("model unavailable")
	stub := &stubModel{errOn: 2, err: modelErr}
	agent := New(model.ChatAgentConfig{}, stub)

	_, err := agent.Start(context.Background())
	require.NoError(t, err)

	_, err = agent.Respond(context.Background(), "hello")
	require.ErrorIs(t, err, modelErr)
	assert.Equal(t, 2, stub.calls)

	// the failed turn leaves the user message at the end of the transcript
	history := agent.History()
	task := agent.TaskMessages()
	require.Len(t, history, len(task)+2)
	last := history[len(history)-1]
	assert.Equal(t, schema.User, last.Role)
	assert.Equal(t, "hello", last.Content)
}

func TestStreamStartErrorPropagates(t *testing.T) {
	modelErr := errors.New("model unavailable")
	stub := &stubModel{errOn: 1, err: modelErr}
	agent := New(model.ChatAgentConfig{Stream: true}, stub, WithIO(strings.NewReader(""), &bytes.Buffer{}))

	_, err := agent.Start(context.Background())
	require.ErrorIs(t, err, modelErr)
	assert.Equal(t, 1, stub.calls)
	assert.Empty(t, agent.History())
}

// brokenStreamModel yields its chunks and then fails the stream mid-reply.
// The writer side is kept so tests can check the reader was closed.
type brokenStreamModel struct {
	chunks []string
	err    error
	sw     *schema.StreamWriter[*schema.Message]
	calls  int
}

func (m *brokenStreamModel) Generate(_ context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	return nil, errors.New("generate not expected")
}

func (m *brokenStreamModel) Stream(_ context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	m.calls++
	sr, sw := schema.Pipe[*schema.Message](len(m.chunks) + 1)
	for _, c := range m.chunks {
		sw.Send(schema.AssistantMessage(c, nil), nil)
	}
	sw.Send(nil, m.err)
	m.sw = sw
	return sr, nil
}

func TestStreamRecvErrorClosesStreamAndPropagates(t *testing.T) {
	var out bytes.Buffer
	streamErr := errors.New("stream interrupted")
	stub := &brokenStreamModel{chunks: []string{"par"}, err: streamErr}
	agent := New(model.ChatAgentConfig{Stream: true}, stub, WithIO(strings.NewReader(""), &out))

	_, err := agent.Start(context.Background())
	require.ErrorIs(t, err, streamErr)
	assert.Equal(t, 1, stub.calls)
	assert.Empty(t, agent.History())
	assert.Contains(t, out.String(), "par")

	// the reader was closed on the error path, so the writer sees it
	assert.True(t, stub.sw.Send(schema.AssistantMessage("late", nil), nil))
}

func TestStreamingDisplaysAndConcatenates(t *testing.T) {
	var out bytes.Buffer
	stub := &stubModel{chunks: [][]string{{"Hel", "lo the", "re"}}}
	agent := New(model.ChatAgentConfig{Stream: true}, stub, WithIO(strings.NewReader(""), &out))

	doc, err := agent.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello there", doc.Content)
	assert.Contains(t, out.String(), "Hello there")
}
