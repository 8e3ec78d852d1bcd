package parsing

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrompterListStopsOnDone(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("https://example.com\n./docs\nhttps://example.com\ndone\nignored\n"), &out)

	items := p.List("", 0)
	assert.Equal(t, []string{"https://example.com", "./docs"}, items)
}

func TestPrompterListStopsOnBlank(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("one\n\n"), &out)

	assert.Equal(t, []string{"one"}, p.List("", 0))
}

func TestPrompterListBounded(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("a\nb\nc\n"), &out)

	assert.Equal(t, []string{"a", "b"}, p.List("", 2))
}

func TestPrompterAskDefault(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("\n"), &out)

	assert.Equal(t, "doc-chat", p.Ask("Name?", "doc-chat"))
}

func TestPrompterAskChoice(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("maybe\ny\n"), &out)

	assert.Equal(t, "y", p.AskChoice("Delete everything?", []string{"y", "n"}, "n"))
}
