package session

// Credential store keys. The gate treats the store as opaque key-value
// storage; values are written as-is and trusted on read.
const (
	KeyAccessToken = "access_token"
	KeyUser        = "user"
)

// Store persists session credentials across runs. An absent key reads
// back as the empty string.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Clear() error
}

// MemoryStore is an in-process Store for tests and throwaway sessions.
type MemoryStore struct {
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, error) {
	return m.values[key], nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Clear() error {
	m.values = make(map[string]string)
	return nil
}
