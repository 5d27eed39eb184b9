package store

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	hostErrors "github.com/wadbctl/host/internal/errors"
	"github.com/wadbctl/host/internal/options"
)

// Blob layout, gzip-compressed end to end:
//
//	"YA" | uint16 version | { utf key | tag byte | payload }*
//
// utf is a big-endian uint16 byte length followed by the bytes. Tag 'I' is
// followed by a big-endian int32, tag 'S' by a utf string. The record list
// ends at end of data.
const (
	// FormatVersion is the newest version this reader understands.
	FormatVersion uint16 = 0

	tagInt    byte = 'I'
	tagString byte = 'S'
)

var signature = [2]byte{'Y', 'A'}

// Record is one persisted key/value pair.
type Record struct {
	Key   string
	Value options.Value
}

// Encode returns the compressed blob for records in the given order.
func Encode(records []Record) ([]byte, error) {
	var raw bytes.Buffer
	raw.Write(signature[:])
	_ = binary.Write(&raw, binary.BigEndian, FormatVersion)

	for _, rec := range records {
		if err := writeUTF(&raw, rec.Key); err != nil {
			return nil, err
		}
		switch rec.Value.Kind() {
		case options.KindInt:
			n := rec.Value.Int()
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, hostErrors.New(hostErrors.CodePersistWriteFailed,
					fmt.Sprintf("value of %s does not fit in int32", rec.Key))
			}
			raw.WriteByte(tagInt)
			_ = binary.Write(&raw, binary.BigEndian, int32(n))
		case options.KindString:
			raw.WriteByte(tagString)
			if err := writeUTF(&raw, rec.Value.Str()); err != nil {
				return nil, err
			}
		default:
			return nil, hostErrors.New(hostErrors.CodePersistWriteFailed,
				fmt.Sprintf("value of %s has no kind", rec.Key))
		}
	}

	var out bytes.Buffer
	zw := gzip.NewWriter(&out)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return nil, hostErrors.Wrap(hostErrors.CodePersistWriteFailed, "compress failed", err)
	}
	if err := zw.Close(); err != nil {
		return nil, hostErrors.Wrap(hostErrors.CodePersistWriteFailed, "compress failed", err)
	}
	return out.Bytes(), nil
}

func writeUTF(w *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return hostErrors.New(hostErrors.CodePersistWriteFailed,
			fmt.Sprintf("string of %d bytes is too long", len(s)))
	}
	_ = binary.Write(w, binary.BigEndian, uint16(len(s)))
	w.WriteString(s)
	return nil
}

// Decode reads a compressed blob. Any structural problem fails the whole
// blob: callers fall back to defaults rather than apply half a record list.
func Decode(r io.Reader) ([]Record, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, hostErrors.Wrap(hostErrors.CodePersistReadFailed, "blob is not compressed data", err)
	}
	defer zr.Close()
	br := bufio.NewReader(zr)

	var sig [2]byte
	if _, err := io.ReadFull(br, sig[:]); err != nil {
		return nil, hostErrors.PersistCorrupt("blob ends before signature", err)
	}
	if sig != signature {
		return nil, hostErrors.New(hostErrors.CodePersistBadSignature,
			fmt.Sprintf("unexpected signature %q", sig[:]))
	}

	var version uint16
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return nil, hostErrors.PersistCorrupt("blob ends before version", err)
	}
	if version > FormatVersion {
		return nil, hostErrors.New(hostErrors.CodePersistUnsupportedVersion,
			fmt.Sprintf("blob version %d is newer than %d", version, FormatVersion))
	}

	var records []Record
	for {
		key, err := readUTF(br)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, hostErrors.PersistCorrupt("truncated key", err)
		}

		tag, err := br.ReadByte()
		if err != nil {
			return nil, hostErrors.PersistCorrupt("truncated record "+key, unexpected(err))
		}

		switch tag {
		case tagInt:
			var n int32
			if err := binary.Read(br, binary.BigEndian, &n); err != nil {
				return nil, hostErrors.PersistCorrupt("truncated record "+key, unexpected(err))
			}
			records = append(records, Record{Key: key, Value: options.IntValue(int(n))})
		case tagString:
			s, err := readUTF(br)
			if err != nil {
				return nil, hostErrors.PersistCorrupt("truncated record "+key, unexpected(err))
			}
			records = append(records, Record{Key: key, Value: options.StringValue(s)})
		default:
			return nil, hostErrors.PersistCorrupt(fmt.Sprintf("unknown tag %q in record %s", tag, key), nil)
		}
	}
}

// readUTF returns io.EOF only when no byte of the string was available.
func readUTF(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", unexpected(err)
	}
	return string(buf), nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
