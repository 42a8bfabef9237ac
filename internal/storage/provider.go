// Package storage defines the data-directory file abstraction.
package storage

// Provider is the interface for collection file operations. Names are
// resolved relative to the data directory.
type Provider interface {
	// Read returns the raw bytes of the file at name.
	Read(name string) ([]byte, error)
	// Write atomically replaces the file at name with data.
	Write(name string, data []byte) error
	// WriteAll replaces several files as one staged commit: every file is
	// written to a temp and synced before any rename happens.
	WriteAll(files map[string][]byte) error
	// Exists reports whether the file at name currently exists.
	Exists(name string) bool
}
