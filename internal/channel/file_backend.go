package channel

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// FileBackend keeps each record in its own text file, named the way a
// multi-source server names them: master.info for the default channel and
// master-<name>.info for the others.
type FileBackend struct {
	Dir              string
	MasterInfoFile   string
	RelayLogInfoFile string
	// Perm applies to newly written files.
	Perm fs.FileMode
}

// NewFileBackend returns a backend rooted at dir with the given base names.
func NewFileBackend(dir, masterInfoFile, relayLogInfoFile string) *FileBackend {
	return &FileBackend{
		Dir:              dir,
		MasterInfoFile:   masterInfoFile,
		RelayLogInfoFile: relayLogInfoFile,
		Perm:             0o600,
	}
}

func (b *FileBackend) Name() string { return "file" }

// Path returns the file holding the record.
func (b *FileBackend) Path(channel string, kind Kind) string {
	base := b.MasterInfoFile
	if kind == RelayLogInfo {
		base = b.RelayLogInfoFile
	}
	if channel != "" {
		ext := filepath.Ext(base)
		base = strings.TrimSuffix(base, ext) + "-" + channel + ext
	}
	return filepath.Join(b.Dir, base)
}

func (b *FileBackend) Read(channel string, kind Kind) ([]byte, error) {
	data, err := os.ReadFile(b.Path(channel, kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

// Write stores data in a uniquely named temporary file in the same
// directory, syncs it, and renames it over the record.
func (b *FileBackend) Write(channel string, kind Kind, data []byte) error {
	path := b.Path(channel, kind)
	tmp := filepath.Join(b.Dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, b.perm())
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return syncDir(b.Dir)
}

func (b *FileBackend) perm() fs.FileMode {
	if b.Perm == 0 {
		return 0o600
	}
	return b.Perm
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	// Some filesystems refuse to sync a directory; the rename has still
	// happened.
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return fmt.Errorf("sync %s: %w", dir, err)
	}
	return nil
}

func (b *FileBackend) Remove(channel string, kind Kind) error {
	err := os.Remove(b.Path(channel, kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// List scans Dir for master info files.
func (b *FileBackend) List() ([]string, error) {
	entries, err := os.ReadDir(b.Dir)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(b.MasterInfoFile)
	stem := strings.TrimSuffix(b.MasterInfoFile, ext)

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fn := e.Name()
		switch {
		case fn == b.MasterInfoFile:
			names = append(names, "")
		case strings.HasPrefix(fn, stem+"-") && strings.HasSuffix(fn, ext):
			name := strings.TrimSuffix(strings.TrimPrefix(fn, stem+"-"), ext)
			if name != "" && ValidateName(name) == nil {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}
