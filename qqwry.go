package ipwry

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
)

const (
	headerLenV4      = 8
	indexRecordLenV4 = 7

	// detail flags
	redirectMode1 = 0x01 // country and area both behind the pointer
	redirectMode2 = 0x02 // only the country is behind the pointer
)

// Vendor placeholders that mean "no data".
var (
	sentinelCountries = []string{" CZ88.NET", "纯真网络"}
	sentinelArea      = " CZ88.NET"
	noDataCountry     = "无数据"
)

// QQWry is an open IPv4 database in the QQWry format.
type QQWry struct {
	path   string
	file   *dbStream
	Header HeaderV4
}

// OpenQQWry opens the IPv4 database at path and reads its header.
func OpenQQWry(path string) (*QQWry, error) {
	file, err := newDBStream(path)
	if err != nil {
		return nil, err
	}
	header, err := readHeaderV4(file)
	if err != nil {
		file.close()
		return nil, err
	}
	logger.Infof("opened qqwry %s: %d records", path, header.Total())
	return &QQWry{path: path, file: file, Header: header}, nil
}

func readHeaderV4(file *dbStream) (HeaderV4, error) {
	first, err := file.readUint32(0)
	if err != nil {
		return HeaderV4{}, err
	}
	last, err := file.readUint32(4)
	if err != nil {
		return HeaderV4{}, err
	}
	if first < headerLenV4 || last < first || (last-first)%indexRecordLenV4 != 0 ||
		int64(last)+indexRecordLenV4 > file.size {
		return HeaderV4{}, malformed("bad qqwry index bounds [%d, %d]", first, last)
	}
	return HeaderV4{FirstOffset: first, LastOffset: last}, nil
}

// Path returns the file the handle was opened from.
func (db *QQWry) Path() string {
	return db.path
}

// Total - number of index records
func (db *QQWry) Total() uint64 {
	return uint64(db.Header.Total())
}

// Close - method for closing db
func (db *QQWry) Close() error {
	return db.file.close()
}

// Lookup resolves an IPv4 address to its raw country and area text.
func (db *QQWry) Lookup(ip string) (*RawLocation, error) {
	addr, ok := parseIPv4(ip)
	if !ok {
		return nil, invalidAddress(ip)
	}
	pos, err := db.find(ipV4ToInt(addr))
	if err != nil {
		return nil, err
	}

	start, err := db.file.readUint32(pos)
	if err != nil {
		return nil, err
	}
	offset, err := db.file.readUint24(pos + 4)
	if err != nil {
		return nil, err
	}
	end, err := db.file.readUint32(int64(offset))
	if err != nil {
		return nil, err
	}
	country, area, err := db.readDetail(int64(offset) + 4)
	if err != nil {
		return nil, err
	}

	location := &RawLocation{
		IP:      ip,
		Start:   intToIPv4(start),
		End:     intToIPv4(end),
		Country: decodeGBK(country),
		Area:    decodeGBK(area),
	}
	for _, s := range sentinelCountries {
		if location.Country == s {
			location.Country = noDataCountry
			break
		}
	}
	if location.Area == sentinelArea {
		location.Area = ""
	}
	logger.Debugf("qqwry %s -> %q %q", ip, location.Country, location.Area)
	return location, nil
}

// find returns the position of the index record whose range holds ip. When
// the bisection runs out without a bracketing record, the greatest record
// starting at or below ip is used.
func (db *QQWry) find(ip uint32) (int64, error) {
	first := int64(db.Header.FirstOffset)
	l, u := int64(0), int64(db.Header.Total())-1
	for l <= u {
		i := (l + u) / 2
		pos := first + i*indexRecordLenV4
		begin, err := db.file.readUint32(pos)
		if err != nil {
			return 0, err
		}
		if ip < begin {
			u = i - 1
			continue
		}
		offset, err := db.file.readUint24(pos + 4)
		if err != nil {
			return 0, err
		}
		end, err := db.file.readUint32(int64(offset))
		if err != nil {
			return 0, err
		}
		if ip > end {
			l = i + 1
			continue
		}
		return pos, nil
	}
	if u < 0 {
		u = 0
	}
	return first + u*indexRecordLenV4, nil
}

// readDetail decodes the country/area pair stored at pos.
func (db *QQWry) readDetail(pos int64) (country, area []byte, err error) {
	flag, err := db.file.readUint8(pos)
	if err != nil {
		return nil, nil, err
	}
	switch flag {
	case redirectMode1:
		block, err := db.file.readUint24(pos + 1)
		if err != nil {
			return nil, nil, err
		}
		blockPos := int64(block)
		inner, err := db.file.readUint8(blockPos)
		if err != nil {
			return nil, nil, err
		}
		if inner == redirectMode2 {
			if country, err = db.readPointedString(blockPos + 1); err != nil {
				return nil, nil, err
			}
			area, err = db.readArea(blockPos + 4)
			return country, area, err
		}
		if country, err = db.file.readString(blockPos); err != nil {
			return nil, nil, err
		}
		area, err = db.readArea(blockPos + int64(len(country)) + 1)
		return country, area, err
	case redirectMode2:
		if country, err = db.readPointedString(pos + 1); err != nil {
			return nil, nil, err
		}
		area, err = db.readArea(pos + 4)
		return country, area, err
	}
	if country, err = db.file.readString(pos); err != nil {
		return nil, nil, err
	}
	area, err = db.readArea(pos + int64(len(country)) + 1)
	return country, area, err
}

// readArea reads an area field that may be empty, inline or one redirect away.
func (db *QQWry) readArea(pos int64) ([]byte, error) {
	flag, err := db.file.readUint8(pos)
	if err != nil {
		return nil, err
	}
	switch flag {
	case 0:
		return nil, nil
	case redirectMode1, redirectMode2:
		return db.readPointedString(pos + 1)
	}
	return db.file.readString(pos)
}

func (db *QQWry) readPointedString(pos int64) ([]byte, error) {
	ptr, err := db.file.readUint24(pos)
	if err != nil {
		return nil, err
	}
	if ptr == 0 {
		return nil, nil
	}
	return db.file.readString(int64(ptr))
}

// decodeGBK converts database text to UTF-8. Undecodable text yields "".
func decodeGBK(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(b)
	if err != nil {
		logger.Debugf("gbk decode failed: %v", err)
		return ""
	}
	// invalid sequences come back as U+FFFD, which GBK itself cannot encode
	if bytes.ContainsRune(out, utf8.RuneError) {
		logger.Debugf("invalid gbk text %q", b)
		return ""
	}
	return string(out)
}
