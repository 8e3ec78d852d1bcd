package errx

import (
	"errors"
	"net/http"
)

// Sentinel errors shared by all vector store backends.
var (
	ErrCollectionNotFound = errors.New("collection does not exist")
	ErrNoCollection       = errors.New("no collection selected")
)

// WrapStore maps vector store errors to the unified Error type.
func WrapStore(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrCollectionNotFound) {
		return New(err, http.StatusNotFound, StoreNotFoundMessage)
	}

	return New(err, http.StatusBadGateway, StoreErrorMessage)
}
