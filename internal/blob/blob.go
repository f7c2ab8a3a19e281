package blob

import "context"

// Store is the opaque content-addressable blob store the pipeline reads
// from and the upload path writes to. Unavailability is a transient
// condition; callers classify errors accordingly.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}
