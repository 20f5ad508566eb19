package log

import (
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Reader reads session events from a CBOR capture file written by
// FileLogger.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
}

// NewReader opens a capture file for reading.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: cbor.NewDecoder(f),
	}, nil
}

// Next returns the next event. It returns io.EOF when the file is
// exhausted.
func (r *Reader) Next() (Event, error) {
	var event Event
	if err := r.decoder.Decode(&event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// Close closes the capture file.
func (r *Reader) Close() error {
	return r.file.Close()
}
