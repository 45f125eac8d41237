package ipwry

import (
	"math/bits"
	"unicode/utf8"

	"lukechampine.com/uint128"
)

const (
	headerLenV6 = 24
	magicV6     = "IPDB"

	// maxRedirects bounds pointer chasing so a cyclic database fails the
	// lookup instead of looping.
	maxRedirects = 16
)

// IPv6Wry is an open IPv6 database in the IPv6Wry ("IPDB") format.
type IPv6Wry struct {
	path   string
	file   *dbStream
	Header HeaderV6
}

// OpenIPv6Wry opens the IPv6 database at path and reads its header.
func OpenIPv6Wry(path string) (*IPv6Wry, error) {
	if bits.UintSize < 64 {
		return nil, ErrPlatformUnsupported
	}
	file, err := newDBStream(path)
	if err != nil {
		return nil, err
	}
	header, err := readHeaderV6(file)
	if err != nil {
		file.close()
		return nil, err
	}
	logger.Infof("opened ipv6wry %s: %d records, iplen=%d offlen=%d",
		path, header.TotalRecords, header.IPLen, header.OffsetLen)
	return &IPv6Wry{path: path, file: file, Header: header}, nil
}

func readHeaderV6(file *dbStream) (HeaderV6, error) {
	buf, err := file.readCount(0, headerLenV6)
	if err != nil {
		return HeaderV6{}, err
	}
	h := HeaderV6{
		OffsetLen:        buf[6],
		IPLen:            buf[7],
		TotalRecords:     leUint(buf[8:16]),
		IndexStartOffset: leUint(buf[16:24]),
	}
	if h.OffsetLen < 1 || h.OffsetLen > 8 || h.IPLen < 1 || h.IPLen > 16 {
		return HeaderV6{}, malformed("bad ipv6wry field widths iplen=%d offlen=%d", h.IPLen, h.OffsetLen)
	}
	if h.TotalRecords == 0 {
		return HeaderV6{}, malformed("empty ipv6wry index")
	}
	width := uint64(h.IPLen) + uint64(h.OffsetLen)
	hi, span := bits.Mul64(width, h.TotalRecords)
	end, carry := bits.Add64(h.IndexStartOffset, span, 0)
	if hi != 0 || carry != 0 || end > uint64(file.size) {
		return HeaderV6{}, malformed("ipv6wry index [%d, +%d records] outside file (%d)",
			h.IndexStartOffset, h.TotalRecords, file.size)
	}
	h.IndexEndOffset = end
	return h, nil
}

// Path returns the file the handle was opened from.
func (db *IPv6Wry) Path() string {
	return db.path
}

// Total - number of index records
func (db *IPv6Wry) Total() uint64 {
	return db.Header.TotalRecords
}

// Close - method for closing db
func (db *IPv6Wry) Close() error {
	return db.file.close()
}

// Lookup resolves an IPv6 address to its raw country and area text.
func (db *IPv6Wry) Lookup(ip string) (*RawLocation, error) {
	addr, ok := parseIPv6(ip)
	if !ok {
		return nil, invalidAddress(ip)
	}
	target := ipV6ToInt(addr)
	index, err := db.find(target)
	if err != nil {
		return nil, err
	}

	start, err := db.readKey(index)
	if err != nil {
		return nil, err
	}
	end := maxIPv6
	if index+1 < db.Header.TotalRecords {
		next, err := db.readKey(index + 1)
		if err != nil {
			return nil, err
		}
		if next.Cmp(start) <= 0 {
			return nil, malformed("ipv6wry index not ascending at record %d", index+1)
		}
		end = next.Sub64(1)
	}

	recordPtr, err := db.file.readUintN(db.entryPos(index)+int64(db.Header.IPLen), int(db.Header.OffsetLen))
	if err != nil {
		return nil, err
	}
	country, area, err := db.readRecord(recordPtr)
	if err != nil {
		return nil, err
	}

	location := &RawLocation{
		IP:      ip,
		Start:   intToIPv6(start),
		End:     intToIPv6(end),
		Country: decodeUTF8(country),
		Area:    decodeUTF8(area),
	}
	logger.Debugf("ipv6wry %s -> %q %q", ip, location.Country, location.Area)
	return location, nil
}

func (db *IPv6Wry) entryPos(index uint64) int64 {
	width := uint64(db.Header.IPLen) + uint64(db.Header.OffsetLen)
	return int64(db.Header.IndexStartOffset + index*width)
}

// readKey reconstructs the range start of index record i. Keys narrower
// than the address are left-aligned, so the missing low bits are zero.
func (db *IPv6Wry) readKey(i uint64) (uint128.Uint128, error) {
	pos := db.entryPos(i)
	ipLen := int(db.Header.IPLen)
	if ipLen <= 8 {
		hi, err := db.file.readUintN(pos, ipLen)
		if err != nil {
			return uint128.Zero, err
		}
		return uint128.New(0, hi<<(8*(8-ipLen))), nil
	}
	hi, err := db.file.readUint64(pos)
	if err != nil {
		return uint128.Zero, err
	}
	lo, err := db.file.readUintN(pos+8, ipLen-8)
	if err != nil {
		return uint128.Zero, err
	}
	return uint128.New(lo<<(8*(16-ipLen)), hi), nil
}

// find returns the greatest record index whose key is <= target.
func (db *IPv6Wry) find(target uint128.Uint128) (uint64, error) {
	l, r := uint64(0), db.Header.TotalRecords
	for l+1 < r {
		m := l + (r-l)/2
		key, err := db.readKey(m)
		if err != nil {
			return 0, err
		}
		if target.Cmp(key) < 0 {
			r = m
		} else {
			l = m
		}
	}
	return l, nil
}

// readRecord resolves the country/area pair at offset, following whole-record
// redirects.
func (db *IPv6Wry) readRecord(offset uint64) (country, area []byte, err error) {
	offLen := int(db.Header.OffsetLen)
	for hops := 0; ; hops++ {
		if hops > maxRedirects {
			return nil, nil, malformed("ipv6wry record redirect chain too long at %d", offset)
		}
		flag, err := db.file.readUint8(int64(offset))
		if err != nil {
			return nil, nil, err
		}
		if flag == redirectMode1 {
			offset, err = db.file.readUintN(int64(offset)+1, offLen)
			if err != nil {
				return nil, nil, err
			}
			continue
		}

		if country, err = db.readLocation(offset); err != nil {
			return nil, nil, err
		}
		if flag == redirectMode2 {
			area, err = db.readLocation(offset + uint64(offLen) + 1)
		} else {
			area, err = db.readLocation(offset + uint64(len(country)) + 1)
		}
		return country, area, err
	}
}

// readLocation reads one text field, following field redirects.
func (db *IPv6Wry) readLocation(offset uint64) ([]byte, error) {
	for hops := 0; hops <= maxRedirects; hops++ {
		if offset == 0 {
			return nil, nil
		}
		flag, err := db.file.readUint8(int64(offset))
		if err != nil {
			return nil, err
		}
		switch flag {
		case 0:
			return nil, nil
		case redirectMode2:
			offset, err = db.file.readUintN(int64(offset)+1, int(db.Header.OffsetLen))
			if err != nil {
				return nil, err
			}
			continue
		}
		return db.file.readString(int64(offset))
	}
	return nil, malformed("ipv6wry location redirect chain too long at %d", offset)
}

func decodeUTF8(b []byte) string {
	if !utf8.Valid(b) {
		logger.Debugf("invalid utf-8 text %q", b)
		return ""
	}
	return string(b)
}
