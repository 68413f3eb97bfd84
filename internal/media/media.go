package media

import (
	"context"
	"errors"
)

var (
	ErrUploadFailed = errors.New("failed to upload media asset")
	ErrRemoveFailed = errors.New("failed to remove media asset")
)

// Asset identifies an image hosted on the remote media store.
type Asset struct {
	PublicID string
	URL      string
}

// Store uploads and deletes binary image assets on a remote host. Failures
// are not retried; they propagate to the caller.
type Store interface {
	Upload(ctx context.Context, content []byte, folder string) (*Asset, error)
	Remove(ctx context.Context, publicID string) error
}
