package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// ResponseCache stores model replies keyed by a digest of the transcript that
// produced them.
type ResponseCache interface {
	// Get returns the cached reply for key, with ok=false on a miss.
	Get(ctx context.Context, key string) (*schema.Message, bool, error)

	// Set stores the reply for key.
	Set(ctx context.Context, key string, message *schema.Message) error
}
