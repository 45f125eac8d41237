package ipwry

import "net"

// HeaderV4 - header of a QQWry database
type HeaderV4 struct {
	FirstOffset uint32 // offset of the first index record
	LastOffset  uint32 // offset of the last index record
}

// Total - number of index records. LastOffset points at the last record
// itself, so the count is one more than the number of strides between them.
func (h HeaderV4) Total() uint32 {
	return (h.LastOffset-h.FirstOffset)/indexRecordLenV4 + 1
}

// HeaderV6 - header of an IPv6Wry database
type HeaderV6 struct {
	IndexStartOffset uint64 // offset of the first index record
	IndexEndOffset   uint64 // offset just past the last index record
	OffsetLen        uint8  // width of record pointers, in bytes
	IPLen            uint8  // width of range keys, in bytes
	TotalRecords     uint64 // number of index records
}

// RawLocation - decoder output before hierarchy parsing
type RawLocation struct {
	IP      string `json:"ip" msgpack:"ip"`
	Start   net.IP `json:"start" msgpack:"start"`
	End     net.IP `json:"end" msgpack:"end"`
	Country string `json:"country" msgpack:"country"` // raw locale text
	Area    string `json:"area" msgpack:"area"`       // raw area/ISP text
}

// Location - parsed administrative hierarchy
type Location struct {
	IP       string       `json:"ip" msgpack:"ip"`
	Country  string       `json:"country" msgpack:"country"`
	Province string       `json:"province" msgpack:"province"`
	City     string       `json:"city" msgpack:"city"`
	County   string       `json:"county" msgpack:"county"`
	Area     string       `json:"area" msgpack:"area"`
	ISP      string       `json:"isp" msgpack:"isp"`
	Raw      *RawLocation `json:"raw,omitempty" msgpack:"raw,omitempty"`
}

// Result - uniform lookup output carrying either a location or a failure
type Result struct {
	Location
	Error     string `json:"error,omitempty" msgpack:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty" msgpack:"error_kind,omitempty"`
}

// OK reports whether the lookup succeeded.
func (r Result) OK() bool {
	return r.Error == ""
}
