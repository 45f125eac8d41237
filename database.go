package ipwry

import (
	"fmt"
	"os"
)

// Database is an open, read-only range database of either format.
type Database interface {
	// Lookup resolves ip to its raw location text.
	Lookup(ip string) (*RawLocation, error)
	// Total - number of index records
	Total() uint64
	Path() string
	Close() error
}

var (
	_ Database = (*QQWry)(nil)
	_ Database = (*IPv6Wry)(nil)
)

// OpenDatabase opens path as an IPv6Wry database when it starts with the
// "IPDB" magic and as a QQWry database otherwise.
func OpenDatabase(path string) (Database, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnavailable, err)
	}
	magic := make([]byte, len(magicV6))
	n, _ := file.ReadAt(magic, 0)
	file.Close()

	if n == len(magicV6) && string(magic) == magicV6 {
		return openIPv6Wry(path)
	}
	return openQQWry(path)
}

// openQQWry and openIPv6Wry never return a typed nil inside the interface.
func openQQWry(path string) (Database, error) {
	db, err := OpenQQWry(path)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func openIPv6Wry(path string) (Database, error) {
	db, err := OpenIPv6Wry(path)
	if err != nil {
		return nil, err
	}
	return db, nil
}
