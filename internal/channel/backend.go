package channel

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotExist is returned by Backend.Read for a record that was never saved.
var ErrNotExist = errors.New("record does not exist")

// ErrInvalidName is returned for channel names that cannot be stored.
var ErrInvalidName = errors.New("invalid channel name")

// MaxNameLen is the longest channel (connection) name.
const MaxNameLen = 64

// Kind identifies one of the two records of a channel.
type Kind int

const (
	MasterInfo Kind = iota
	RelayLogInfo
)

func (k Kind) String() string {
	switch k {
	case MasterInfo:
		return "master_info"
	case RelayLogInfo:
		return "relay_log_info"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Backend stores the serialized records of every channel.
type Backend interface {
	// Name labels the backend in logs and metrics.
	Name() string
	Read(channel string, kind Kind) ([]byte, error)
	// Write replaces the record atomically: a crash leaves either the old
	// or the new content, never a mix.
	Write(channel string, kind Kind, data []byte) error
	Remove(channel string, kind Kind) error
	// List returns the names of channels with a saved master info record.
	List() ([]string, error)
}

// ValidateName checks a channel name. The empty name is the default channel.
// Names are case-insensitive and stored lower case.
func ValidateName(name string) error {
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidName, name, MaxNameLen)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	return nil
}

// NormalizeName validates name and folds it to lower case.
func NormalizeName(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return strings.ToLower(name), nil
}
