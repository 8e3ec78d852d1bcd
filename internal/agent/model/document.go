package model

import "github.com/google/uuid"

// DocMetaData carries identifying metadata for a document.
type DocMetaData struct {
	ID     string `json:"id"`
	Source string `json:"source,omitempty"`
}

// Document is the unit of content exchanged between ingestion, the vector
// store and the agents. Created by the ingestion pipeline or by an agent
// turn; read-only to consumers.
type Document struct {
	Content  string      `json:"content"`
	Metadata DocMetaData `json:"metadata"`
}

// NewDocument builds a document with a fresh ID.
func NewDocument(content, source string) Document {
	return Document{
		Content: content,
		Metadata: DocMetaData{
			ID:     uuid.NewString(),
			Source: source,
		},
	}
}
