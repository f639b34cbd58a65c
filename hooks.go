package restcache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; they run on request paths.
// Wrap slow sinks with hooks/async.
type Hooks interface {
	// A registry constructed a new collection.
	CollectionCreated(key, typ string)

	// ClearLocal emptied a collection; dropped is the number of entities removed.
	CollectionCleared(typ string, dropped int)

	// The pre-request hook rejected an operation.
	PreRequestRejected(typ string, err error)

	// A transport call failed. status is 0 when no response arrived.
	RequestFailed(method, url string, status int, err error)

	// The response cache deleted an entry on read.
	// reason ∈ {"corrupt", "gen_mismatch", "value_decode"}
	CacheSelfHeal(storageKey, reason string)

	// A cache provider returned ok=false on Set (backpressure/eviction).
	CacheSetRejected(storageKey string)

	// GenStore errors for a cache scope.
	GenSnapshotError(scope string, err error)
	GenBumpError(scope string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) CollectionCreated(string, string)         {}
func (NopHooks) CollectionCleared(string, int)            {}
func (NopHooks) PreRequestRejected(string, error)         {}
func (NopHooks) RequestFailed(string, string, int, error) {}
func (NopHooks) CacheSelfHeal(string, string)             {}
func (NopHooks) CacheSetRejected(string)                  {}
func (NopHooks) GenSnapshotError(string, error)           {}
func (NopHooks) GenBumpError(string, error)               {}
