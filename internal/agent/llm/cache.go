package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/PortlandKyGuy/langroid/internal/agent/model"
	logx "github.com/PortlandKyGuy/langroid/pkg/logger"
)

// CachedModel decorates a chat model with a response cache keyed by a digest
// of the transcript. Cache failures never fail the call; the model is asked
// as usual and the result is returned uncached.
type CachedModel struct {
	inner einomodel.BaseChatModel
	cache model.ResponseCache
	name  string
}

func NewCachedModel(inner einomodel.BaseChatModel, cache model.ResponseCache, name string) *CachedModel {
	return &CachedModel{inner: inner, cache: cache, name: name}
}

func (c *CachedModel) key(input []*schema.Message) (string, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal transcript for cache key: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(c.name))
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *CachedModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	key, err := c.key(input)
	if err != nil {
		return c.inner.Generate(ctx, input, opts...)
	}

	if cached, ok, err := c.cache.Get(ctx, key); err != nil {
		logx.Warn().Err(err).Msg("response cache read failed; asking model")
	} else if ok {
		logx.Debug().Str("key", key).Msg("response cache hit")
		return cached, nil
	}

	out, err := c.inner.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, out); err != nil {
		logx.Warn().Err(err).Msg("response cache write failed")
	}
	return out, nil
}

// Stream replays a cached reply as a single-chunk stream on a hit; otherwise
// it streams from the model. Streamed replies are not written back because
// the caller owns the stream.
func (c *CachedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	key, err := c.key(input)
	if err != nil {
		return c.inner.Stream(ctx, input, opts...)
	}

	if cached, ok, err := c.cache.Get(ctx, key); err != nil {
		logx.Warn().Err(err).Msg("response cache read failed; asking model")
	} else if ok {
		logx.Debug().Str("key", key).Msg("response cache hit")
		return schema.StreamReaderFromArray([]*schema.Message{cached}), nil
	}

	return c.inner.Stream(ctx, input, opts...)
}
