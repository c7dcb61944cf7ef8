package storage

import "sync"

// Memory is an in-process KeyValue with an optional byte quota across all
// values. It is the default store for tests and throwaway demo runs.
type Memory struct {
	mu    sync.Mutex
	data  map[string]string
	quota int
}

// NewMemory creates a memory store. quota is the maximum total size in
// bytes of all stored values; zero or negative means unlimited.
func NewMemory(quota int) *Memory {
	return &Memory{
		data:  make(map[string]string),
		quota: quota,
	}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		total := len(value)
		for k, v := range m.data {
			if k == key {
				continue
			}
			total += len(v)
		}
		if total > m.quota {
			return ErrQuotaExceeded
		}
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
