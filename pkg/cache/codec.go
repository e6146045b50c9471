// Package cache persists parsed class summaries on disk so that an archive
// analyzed before is not parsed again.
package cache

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

const lz4Extension = ".lz4"

// Codec defines how entries are serialized and deserialized.
type Codec interface {
	Encode(w io.Writer, value any) error
	Decode(r io.Reader, value any) error
	// Extension returns the file extension for this codec, with the dot.
	Extension() string
}

// LZ4JSONCodec writes compact JSON inside an LZ4 frame.
type LZ4JSONCodec struct{}

// Encode implements Codec.
func (LZ4JSONCodec) Encode(w io.Writer, value any) error {
	zw := lz4.NewWriter(w)

	err := json.NewEncoder(zw).Encode(value)
	if err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return fmt.Errorf("lz4 close: %w", err)
	}

	return nil
}

// Decode implements Codec.
func (LZ4JSONCodec) Decode(r io.Reader, value any) error {
	err := json.NewDecoder(lz4.NewReader(r)).Decode(value)
	if err != nil {
		return fmt.Errorf("decode lz4 json: %w", err)
	}

	return nil
}

// Extension implements Codec.
func (LZ4JSONCodec) Extension() string {
	return lz4Extension
}
