// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 the brainstem-pm authors

package oi

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FrameRecord is one captured stream frame as stored in a frame log.
// Records are written as a plain CBOR sequence so logs can be streamed and
// truncated logs remain readable up to the cut.
type FrameRecord struct {
	At      time.Time `cbor:"1,keyasint"`
	Payload []byte    `cbor:"2,keyasint"`
	Bad     bool      `cbor:"3,keyasint,omitempty"`
}

// RecordWriter appends frame records to a log.
type RecordWriter struct {
	enc *cbor.Encoder
}

// NewRecordWriter creates a frame log writer on w.
func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{enc: cbor.NewEncoder(w)}
}

// Write appends one record.
func (rw *RecordWriter) Write(rec FrameRecord) error {
	if err := rw.enc.Encode(rec); err != nil {
		return fmt.Errorf("oi: frame record encode failed: %w", err)
	}
	return nil
}

// RecordReader reads frame records back from a log.
type RecordReader struct {
	dec *cbor.Decoder
}

// NewRecordReader creates a frame log reader on r.
func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the log.
func (rr *RecordReader) Next() (FrameRecord, error) {
	var rec FrameRecord
	err := rr.dec.Decode(&rec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return rec, io.EOF
		}
		return rec, fmt.Errorf("oi: frame record decode failed: %w", err)
	}
	return rec, nil
}
