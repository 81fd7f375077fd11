package store

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() any {
		return gzip.NewWriter(io.Discard)
	},
}

var gzipReaderPool sync.Pool

// payloadCodec compresses payloads above a size threshold.
type payloadCodec struct {
	threshold int
}

// encode returns the stored form of payload and whether it is compressed.
func (c payloadCodec) encode(payload []byte) ([]byte, bool, error) {
	if c.threshold <= 0 || len(payload) <= c.threshold {
		return payload, false, nil
	}

	var buf bytes.Buffer
	zw := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(zw)
	zw.Reset(&buf)

	if _, err := zw.Write(payload); err != nil {
		return nil, false, fmt.Errorf("error compressing payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, false, fmt.Errorf("error compressing payload: %w", err)
	}

	return buf.Bytes(), true, nil
}

// decode reverses encode. A corrupt compressed payload yields
// ErrEntityUnavailable.
func (c payloadCodec) decode(stored []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return stored, nil
	}

	var zr *gzip.Reader
	var err error
	if v := gzipReaderPool.Get(); v != nil {
		zr = v.(*gzip.Reader)
		err = zr.Reset(bytes.NewReader(stored))
	} else {
		zr, err = gzip.NewReader(bytes.NewReader(stored))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEntityUnavailable, err)
	}
	defer gzipReaderPool.Put(zr)

	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEntityUnavailable, err)
	}

	return payload, nil
}
