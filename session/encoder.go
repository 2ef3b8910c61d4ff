package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	recordFormatVersionCurrent = 1
	entryFormatVersionCurrent  = 1

	entryFlagExpire byte = 1 << 0
)

// Record codec limits. Keys and the value count are length-prefixed with uint16,
// value blobs with uint32.
const (
	MaxKeyLength   = math.MaxUint16
	MaxValues      = math.MaxUint16
	MaxValueLength = math.MaxUint32
)

var (
	errInvalidRecordVersion = errors.New("invalid session record version")
	errInvalidEntryVersion  = errors.New("invalid session entry version")
)

// EncodeRecord serializes r into the current record format.
func EncodeRecord(r *Record) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil record")
	}
	if len(r.Values) > MaxValues {
		return nil, errors.New("too many session values")
	}

	var buf bytes.Buffer
	buf.WriteByte(recordFormatVersionCurrent)

	if err := binary.Write(&buf, binary.BigEndian, r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.Values))); err != nil {
		return nil, err
	}

	for key, value := range r.Values {
		if len(key) > MaxKeyLength {
			return nil, errors.New("session key too long")
		}
		if uint64(len(value)) > MaxValueLength {
			return nil, errors.New("session value too large")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(key))); err != nil {
			return nil, err
		}
		buf.WriteString(key)
		if err := binary.Write(&buf, binary.BigEndian, uint32(len(value))); err != nil {
			return nil, err
		}
		buf.Write(value)
	}

	return buf.Bytes(), nil
}

// DecodeRecord parses a blob produced by [EncodeRecord]. The record ID is not part of
// the blob; callers set it from the storage key.
func DecodeRecord(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersionCurrent {
		return nil, errInvalidRecordVersion
	}

	r := &Record{}
	if err := binary.Read(reader, binary.BigEndian, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.ExpiresAt); err != nil {
		return nil, err
	}

	var count uint16
	if err := binary.Read(reader, binary.BigEndian, &count); err != nil {
		return nil, err
	}

	r.Values = make(map[string][]byte, count)
	for i := 0; i < int(count); i++ {
		var keyLen uint16
		if err := binary.Read(reader, binary.BigEndian, &keyLen); err != nil {
			return nil, err
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(reader, key); err != nil {
			return nil, err
		}

		var valueLen uint32
		if err := binary.Read(reader, binary.BigEndian, &valueLen); err != nil {
			return nil, err
		}
		if int64(valueLen) > int64(reader.Len()) {
			return nil, io.ErrUnexpectedEOF
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(reader, value); err != nil {
			return nil, err
		}

		r.Values[string(key)] = value
	}

	return r, nil
}

// EncodeEntry serializes e into the current entry format.
func EncodeEntry(e Entry) ([]byte, error) {
	if uint64(len(e.Value)) > math.MaxUint32 {
		return nil, errors.New("entry value too large")
	}

	var buf bytes.Buffer
	buf.Grow(len(e.Value) + 14)
	buf.WriteByte(entryFormatVersionCurrent)

	var flags byte
	if e.ExpireAt != 0 {
		flags |= entryFlagExpire
	}
	buf.WriteByte(flags)

	if flags&entryFlagExpire != 0 {
		if err := binary.Write(&buf, binary.BigEndian, e.ExpireAt); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(e.Value))); err != nil {
		return nil, err
	}
	buf.Write(e.Value)

	return buf.Bytes(), nil
}

// DecodeEntry parses a blob produced by [EncodeEntry]. Any shape error is returned so
// that callers can treat the entry as a miss.
func DecodeEntry(data []byte) (Entry, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return Entry{}, err
	}
	if version != entryFormatVersionCurrent {
		return Entry{}, errInvalidEntryVersion
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return Entry{}, err
	}

	var e Entry
	if flags&entryFlagExpire != 0 {
		if err := binary.Read(reader, binary.BigEndian, &e.ExpireAt); err != nil {
			return Entry{}, err
		}
	}

	var valueLen uint32
	if err := binary.Read(reader, binary.BigEndian, &valueLen); err != nil {
		return Entry{}, err
	}
	if int64(valueLen) != int64(reader.Len()) {
		return Entry{}, io.ErrUnexpectedEOF
	}
	e.Value = make([]byte, valueLen)
	if _, err := io.ReadFull(reader, e.Value); err != nil {
		return Entry{}, err
	}

	return e, nil
}
