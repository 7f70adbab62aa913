package channel

import (
	"errors"
	"sort"
	"sync"
)

// Manager opens channels on demand and keeps one Channel per name, so all
// callers share the same lock for a connection.
type Manager struct {
	mu       sync.Mutex
	deps     Deps
	channels map[string]*Channel
	// loadErrs holds the load error of each channel whose stored record
	// could not be read, until a save replaces it.
	loadErrs map[string]error
}

// NewManager returns a manager for the channels stored in deps.Backend.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:     deps.withDefaults(),
		channels: make(map[string]*Channel),
		loadErrs: make(map[string]error),
	}
}

// Open returns the named channel, loading it on first use. A load error is
// returned together with the channel, which then holds fresh defaults, and
// again on every later Open until the channel is saved through SaveAll.
func (m *Manager) Open(name string) (*Channel, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.channels[name]; ok {
		return c, m.loadErrs[name]
	}
	c, err := New(name, m.deps)
	if err != nil {
		return nil, err
	}
	m.channels[name] = c
	if err := c.Load(); err != nil {
		m.loadErrs[name] = err
		return c, err
	}
	return c, nil
}

// Discover opens every channel the backend has a master info record for.
func (m *Manager) Discover() ([]*Channel, error) {
	names, err := m.deps.Backend.List()
	if err != nil {
		return nil, err
	}

	var errs []error
	out := make([]*Channel, 0, len(names))
	for _, name := range names {
		c, err := m.Open(name)
		if err != nil {
			errs = append(errs, err)
		}
		if c != nil {
			out = append(out, c)
		}
	}
	return out, errors.Join(errs...)
}

// Channels returns the open channels sorted by name.
func (m *Manager) Channels() []*Channel {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Channel, 0, len(m.channels))
	for _, c := range m.channels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// SaveAll saves every open channel.
func (m *Manager) SaveAll() error {
	var errs []error
	for _, c := range m.Channels() {
		if err := c.Save(); err != nil {
			errs = append(errs, err)
			continue
		}
		m.mu.Lock()
		delete(m.loadErrs, c.name)
		m.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Drop removes a channel's records and forgets it.
func (m *Manager) Drop(name string) error {
	c, err := m.Open(name)
	if c == nil {
		return err
	}
	if err := c.Remove(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.channels, c.name)
	delete(m.loadErrs, c.name)
	m.mu.Unlock()
	return nil
}
