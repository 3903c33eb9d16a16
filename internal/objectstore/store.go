// Package objectstore implements the binary object store:
// (orgId, id) -> (bytes, mimeType, metadata). Ids are freshly generated on
// each Put, not derived from the content. Grounded on the
// teacher's pluggable CASClient abstraction (common/clients/cas.go),
// generalized from a single global CAS namespace to per-organization
// scoping since objects here belong to a tenant, not a shared execution
// cache.
package objectstore

import (
	"context"
	"time"
)

// Object is a stored binary payload and its metadata.
type Object struct {
	ID       string
	OrgID    string
	Data     []byte
	MimeType string
	Metadata map[string]string
}

// Store is the object store contract. Put is non-idempotent: calling it
// twice with the same bytes creates two distinct ids. Get, PresignRead,
// and Delete are idempotent.
type Store interface {
	// Put stores data under a freshly generated, unguessable id scoped to
	// orgID and returns that id.
	Put(ctx context.Context, orgID string, data []byte, mimeType string, metadata map[string]string) (id string, err error)

	// Get retrieves a previously stored object by (orgID, id).
	Get(ctx context.Context, orgID, id string) (*Object, error)

	// PresignRead returns a time-limited, unguessable read token for the
	// object, valid until the returned expiry.
	PresignRead(ctx context.Context, orgID, id string, ttl time.Duration) (token string, expiresAt time.Time, err error)

	// Delete removes the object. Deleting an absent id is a no-op.
	Delete(ctx context.Context, orgID, id string) error
}

// ErrNotFound is returned by Get when the (orgID, id) pair is unknown.
type ErrNotFound struct {
	OrgID string
	ID    string
}

func (e *ErrNotFound) Error() string {
	return "objectstore: object not found: " + e.OrgID + "/" + e.ID
}
