package ipwry

import (
	"fmt"
	"strings"
	"sync"
)

// Locator picks the database for an address family and parses the result.
// Databases are opened on first use and shared by all later lookups.
type Locator struct {
	parser *Parser
	v4     lazyDatabase
	v6     lazyDatabase
}

type lazyDatabase struct {
	once sync.Once
	mu   sync.RWMutex
	path string
	open func(path string) (Database, error)
	db   Database
	err  error
}

func (l *lazyDatabase) get() (Database, error) {
	l.once.Do(func() {
		db, err := l.open(l.path)
		if err != nil {
			logger.Errorf("open %s: %v", l.path, err)
		}
		l.mu.Lock()
		if l.err == nil {
			l.db, l.err = db, err
		} else if db != nil {
			db.Close()
		}
		l.mu.Unlock()
	})
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.db, l.err
}

// close releases the handle. Later lookups fail with ErrFileUnavailable.
func (l *lazyDatabase) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var err error
	if l.db != nil {
		err = l.db.Close()
		l.db = nil
	}
	l.err = fmt.Errorf("%w: %s closed", ErrFileUnavailable, l.path)
	return err
}

// NewLocator - factory method for locator
func NewLocator(cfg *Config) (*Locator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	parser, err := cfg.Parser()
	if err != nil {
		return nil, err
	}
	return &Locator{
		parser: parser,
		v4:     lazyDatabase{path: cfg.IPv4Path(), open: openQQWry},
		v6:     lazyDatabase{path: cfg.IPv6Path(), open: openIPv6Wry},
	}, nil
}

// Database returns the handle serving ip's address family.
func (l *Locator) Database(ip string) (Database, error) {
	ip = strings.TrimSpace(ip)
	if _, ok := parseIPv4(ip); ok {
		return l.v4.get()
	}
	if _, ok := parseIPv6(ip); ok {
		return l.v6.get()
	}
	return nil, invalidAddress(ip)
}

// LookupRaw returns the decoder output for ip without hierarchy parsing.
func (l *Locator) LookupRaw(ip string) (*RawLocation, error) {
	db, err := l.Database(ip)
	if err != nil {
		return nil, err
	}
	return db.Lookup(strings.TrimSpace(ip))
}

// Lookup returns the parsed location of ip.
func (l *Locator) Lookup(ip string) (*Location, error) {
	raw, err := l.LookupRaw(ip)
	if err != nil {
		return nil, err
	}
	loc := l.parser.Parse(*raw)
	return &loc, nil
}

// Locate is Lookup folded into a single Result value.
func (l *Locator) Locate(ip string) Result {
	loc, err := l.Lookup(ip)
	if err != nil {
		logger.Warningf("locate %s: %v", ip, err)
		return Result{
			Location:  Location{IP: ip},
			Error:     err.Error(),
			ErrorKind: ErrorKind(err),
		}
	}
	return Result{Location: *loc}
}

// Close - method for closing both databases
func (l *Locator) Close() error {
	err4 := l.v4.close()
	err6 := l.v6.close()
	if err4 != nil {
		return err4
	}
	return err6
}
