package ipwry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// maxStringLen bounds a single NUL-terminated field so a missing terminator
// cannot make the reader walk the whole file.
const maxStringLen = 1024

type dbStream struct {
	file *os.File
	size int64
}

func newDBStream(filename string) (*dbStream, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnavailable, err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", ErrFileUnavailable, err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileUnavailable, filename)
	}
	return &dbStream{file: file, size: info.Size()}, nil
}

// readCount reads exactly count bytes at pos. ReadAt keeps the stream safe
// for concurrent lookups; there is no shared file cursor.
func (stream *dbStream) readCount(pos int64, count int) ([]byte, error) {
	if pos < 0 || count < 0 || pos+int64(count) > stream.size {
		return nil, malformed("read of %d bytes at %d past end of file (%d)", count, pos, stream.size)
	}
	buf := make([]byte, count)
	n, err := stream.file.ReadAt(buf, pos)
	if n != count {
		return nil, malformed("tried to read %d bytes at %d but got %d: %v", count, pos, n, err)
	}
	return buf, nil
}

func (stream *dbStream) readUint8(pos int64) (byte, error) {
	buf, err := stream.readCount(pos, 1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (stream *dbStream) readUint24(pos int64) (uint32, error) {
	buf, err := stream.readCount(pos, 3)
	if err != nil {
		return 0, err
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16, nil
}

func (stream *dbStream) readUint32(pos int64) (uint32, error) {
	buf, err := stream.readCount(pos, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (stream *dbStream) readUint64(pos int64) (uint64, error) {
	buf, err := stream.readCount(pos, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// readUintN reads a little-endian unsigned integer of width 1..8 bytes.
func (stream *dbStream) readUintN(pos int64, width int) (uint64, error) {
	if width < 1 || width > 8 {
		return 0, malformed("unsupported integer width %d", width)
	}
	buf, err := stream.readCount(pos, width)
	if err != nil {
		return 0, err
	}
	return leUint(buf), nil
}

// readString reads the NUL-terminated byte string starting at pos. The
// terminator is not part of the result.
func (stream *dbStream) readString(pos int64) ([]byte, error) {
	if pos < 0 || pos >= stream.size {
		return nil, malformed("string offset %d outside file (%d)", pos, stream.size)
	}
	count := int64(maxStringLen)
	if rest := stream.size - pos; rest < count {
		count = rest
	}
	buf := make([]byte, count)
	n, err := stream.file.ReadAt(buf, pos)
	if err != nil && err != io.EOF {
		return nil, malformed("read string at %d: %v", pos, err)
	}
	buf = buf[:n]
	end := bytes.IndexByte(buf, 0)
	if end < 0 {
		return nil, malformed("unterminated string at %d", pos)
	}
	return buf[:end], nil
}

func (stream *dbStream) close() error {
	return stream.file.Close()
}

func leUint(buf []byte) uint64 {
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}
