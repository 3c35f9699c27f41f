package audit

import "context"

// Reader queries the audit log. Access is restricted to operators at the
// transport layer.
type Reader struct {
	storage Storage
}

// NewReader creates an audit log reader.
func NewReader(storage Storage) (*Reader, error) {
	if storage == nil {
		return nil, ErrStorageRequired
	}
	return &Reader{storage: storage}, nil
}

// Find returns events matching the criteria, newest first.
func (r *Reader) Find(ctx context.Context, criteria Criteria) ([]Event, error) {
	return r.storage.Find(ctx, criteria)
}
