// Package zipstream reads zip archives front to back from a plain
// io.Reader, one entry at a time.
//
// archive/zip needs an io.ReaderAt and the central directory at the end of
// the file, which means downloading the whole archive first. This package
// walks the local file headers instead, so a caller can stop after the
// first few kilobytes of the first entry and drop the connection.
//
// Supported: stored and deflated entries, entries followed by a data
// descriptor (what streaming zip writers emit) when they are deflated, and
// zip64 sizes in the local extra field. Entry contents are checked against
// the CRC-32 from the local header when the header carries one.
package zipstream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

var (
	// ErrFormat is returned when the input is not a zip archive.
	ErrFormat = errors.New("zipstream: not a valid zip file")
	// ErrUnsupported is returned for entries this reader cannot decode:
	// encrypted entries, unknown compression methods, and stored entries
	// whose size is only given after their data.
	ErrUnsupported = errors.New("zipstream: unsupported entry")
	// ErrChecksum is returned when entry contents do not match their CRC-32.
	ErrChecksum = errors.New("zipstream: checksum error")
)

// Compression methods.
const (
	Store   uint16 = 0
	Deflate uint16 = 8
)

const (
	localHeaderSig    = 0x04034b50
	centralDirSig     = 0x02014b50
	endOfCentralSig   = 0x06054b50
	zip64EndSig       = 0x06064b50
	dataDescriptorSig = 0x08074b50

	flagEncrypted      = 0x1
	flagDataDescriptor = 0x8

	zip64ExtraID = 0x0001
	uint32max    = 0xFFFFFFFF
)

// Entry is one file in the archive. Reading it yields the decompressed
// contents. An Entry is only readable until the next call to Next.
type Entry struct {
	Name               string
	Method             uint16
	CRC32              uint32
	CompressedSize64   uint64
	UncompressedSize64 uint64

	// DataDescriptor is set when sizes and CRC follow the entry data
	// instead of preceding it.
	DataDescriptor bool

	zip64 bool
	r     io.Reader
}

// Read implements io.Reader.
func (e *Entry) Read(p []byte) (int, error) {
	return e.r.Read(p)
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// Reader walks the entries of a zip archive.
type Reader struct {
	r       *bufio.Reader
	cur     *Entry
	raw     *io.LimitedReader
	inflate io.ReadCloser
	started bool
	err     error
}

// NewReader returns a Reader that consumes r. It reads no further into r
// than the caller asks it to, plus a small read-ahead buffer.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next skips whatever is left of the current entry and returns the next
// one. It returns io.EOF once the central directory is reached.
func (z *Reader) Next() (*Entry, error) {
	if z.err != nil {
		return nil, z.err
	}
	if z.cur != nil {
		if err := z.finishEntry(); err != nil {
			z.err = err
			return nil, err
		}
	}

	e, err := z.readHeader()
	if err != nil {
		z.err = err
		return nil, err
	}
	z.cur = e
	return e, nil
}

func (z *Reader) readHeader() (*Entry, error) {
	var sig [4]byte
	if _, err := io.ReadFull(z.r, sig[:]); err != nil {
		if z.started && (err == io.EOF || err == io.ErrUnexpectedEOF) {
			// Archive cut off after its last entry; nothing more to read.
			return nil, io.EOF
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrFormat
		}
		return nil, err
	}

	switch binary.LittleEndian.Uint32(sig[:]) {
	case localHeaderSig:
	case centralDirSig, endOfCentralSig, zip64EndSig:
		return nil, io.EOF
	default:
		return nil, ErrFormat
	}
	z.started = true

	var hdr [26]byte
	if _, err := io.ReadFull(z.r, hdr[:]); err != nil {
		return nil, truncated(err)
	}
	flags := binary.LittleEndian.Uint16(hdr[2:4])
	method := binary.LittleEndian.Uint16(hdr[4:6])
	crc := binary.LittleEndian.Uint32(hdr[10:14])
	csize := binary.LittleEndian.Uint32(hdr[14:18])
	usize := binary.LittleEndian.Uint32(hdr[18:22])
	nameLen := binary.LittleEndian.Uint16(hdr[22:24])
	extraLen := binary.LittleEndian.Uint16(hdr[24:26])

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(z.r, name); err != nil {
		return nil, truncated(err)
	}
	extra := make([]byte, extraLen)
	if _, err := io.ReadFull(z.r, extra); err != nil {
		return nil, truncated(err)
	}

	e := &Entry{
		Name:               string(name),
		Method:             method,
		CRC32:              crc,
		CompressedSize64:   uint64(csize),
		UncompressedSize64: uint64(usize),
		DataDescriptor:     flags&flagDataDescriptor != 0,
	}
	if csize == uint32max || usize == uint32max {
		readZip64Extra(e, extra, usize == uint32max, csize == uint32max)
	}

	if e.DataDescriptor {
		if method != Deflate || flags&flagEncrypted != 0 {
			// No way to find where the data ends.
			return nil, fmt.Errorf("%w: %s: method %d with data descriptor", ErrUnsupported, e.Name, method)
		}
		z.raw = nil
		z.inflate = flate.NewReader(z.r)
		e.r = &entryReader{r: z.inflate}
		return e, nil
	}

	z.raw = &io.LimitedReader{R: z.r, N: int64(e.CompressedSize64)}
	z.inflate = nil

	var body io.Reader
	switch {
	case flags&flagEncrypted != 0:
		body = errReader{fmt.Errorf("%w: %s: encrypted", ErrUnsupported, e.Name)}
	case method == Store:
		body = z.raw
	case method == Deflate:
		z.inflate = flate.NewReader(z.raw)
		body = z.inflate
	default:
		body = errReader{fmt.Errorf("%w: %s: method %d", ErrUnsupported, e.Name, method)}
	}
	e.r = &entryReader{
		r:     body,
		crc:   crc32.NewIEEE(),
		want:  e.CRC32,
		size:  e.UncompressedSize64,
		check: true,
	}
	return e, nil
}

// finishEntry positions the reader after the current entry.
func (z *Reader) finishEntry() error {
	e := z.cur
	z.cur = nil

	if !e.DataDescriptor {
		if z.inflate != nil {
			z.inflate.Close()
		}
		if _, err := io.Copy(io.Discard, z.raw); err != nil {
			return err
		}
		if z.raw.N > 0 {
			return truncated(io.ErrUnexpectedEOF)
		}
		return nil
	}

	// The end of the entry is only known once the deflate stream ends.
	if _, err := io.Copy(io.Discard, z.inflate); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFormat, e.Name, err)
	}
	z.inflate.Close()

	head, err := z.r.Peek(4)
	if err != nil {
		return truncated(err)
	}
	if binary.LittleEndian.Uint32(head) == dataDescriptorSig {
		z.r.Discard(4)
	}
	size := 12
	if e.zip64 {
		size = 20
	}
	if _, err := z.r.Discard(size); err != nil {
		return truncated(err)
	}
	return nil
}

// readZip64Extra fills the sizes that the local header marks as 0xFFFFFFFF
// from the zip64 extended information field.
func readZip64Extra(e *Entry, extra []byte, needUsize, needCsize bool) {
	for len(extra) >= 4 {
		id := binary.LittleEndian.Uint16(extra[0:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		extra = extra[4:]
		if size > len(extra) {
			return
		}
		field := extra[:size]
		extra = extra[size:]
		if id != zip64ExtraID {
			continue
		}
		e.zip64 = true
		if needUsize && len(field) >= 8 {
			e.UncompressedSize64 = binary.LittleEndian.Uint64(field)
			field = field[8:]
		}
		if needCsize && len(field) >= 8 {
			e.CompressedSize64 = binary.LittleEndian.Uint64(field)
		}
		return
	}
}

// entryReader verifies size and CRC-32 once the entry is fully read.
type entryReader struct {
	r     io.Reader
	crc   hash.Hash32
	want  uint32
	size  uint64
	n     uint64
	check bool
	err   error
}

func (e *entryReader) Read(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.r.Read(p)
	if e.check {
		e.crc.Write(p[:n])
	}
	e.n += uint64(n)

	switch {
	case err == io.EOF && e.check:
		if e.n != e.size {
			err = fmt.Errorf("%w: size mismatch", ErrFormat)
		} else if e.crc.Sum32() != e.want {
			err = ErrChecksum
		}
	case err == io.ErrUnexpectedEOF:
		err = truncated(err)
	case err != nil && err != io.EOF:
		var corrupt flate.CorruptInputError
		if errors.As(err, &corrupt) {
			err = fmt.Errorf("%w: %v", ErrFormat, err)
		}
	}
	if err != nil {
		e.err = err
	}
	return n, err
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: unexpected end of archive", ErrFormat)
	}
	return err
}
