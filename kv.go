package docile

import "context"

// KeyedStore is the interface boundary of the persistence collaborator. The
// core never implements it and performs no I/O: a collaborator consumes
// ToMap output for writes, feeds loaded data back through SetAll, supplies
// the opaque CAS token via SetCAS, and reads Schema.KeyInfo to compute
// storage keys.
type KeyedStore interface {
	// Get loads the raw field data and current CAS token for key.
	Get(ctx context.Context, key string) (data map[string]any, cas any, err error)
	// Put stores data under key. A non-nil cas asks for a compare-and-swap
	// against the stored token; the new token is returned.
	Put(ctx context.Context, key string, data map[string]any, cas any) (newCAS any, err error)
	// Delete removes key, optionally guarded by cas.
	Delete(ctx context.Context, key string, cas any) error
}
