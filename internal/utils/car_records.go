package utils

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/carcompare/compare-webserver/internal/models"
)

// RecordError is a single bad record. Reading can continue after it.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// CarRecordReader iterates the cars of an import file. The file is either a
// JSON array of cars or newline-delimited JSON with one car per line.
type CarRecordReader struct {
	array   bool
	decoder *json.Decoder
	scanner *bufio.Scanner
	line    int
}

func NewCarRecordReader(r io.Reader) (*CarRecordReader, error) {
	buffered := bufio.NewReader(r)
	first, err := peekNonSpace(buffered)
	if err != nil {
		return nil, err
	}

	if first == '[' {
		decoder := json.NewDecoder(buffered)
		if _, err := decoder.Token(); err != nil {
			return nil, fmt.Errorf("could not read import array: %w", err)
		}
		return &CarRecordReader{array: true, decoder: decoder}, nil
	}

	scanner := bufio.NewScanner(buffered)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &CarRecordReader{scanner: scanner}, nil
}

// Next returns the next car and its 1-based position (array index or line number).
// It returns io.EOF at the end, a *RecordError for a recoverable bad record and
// any other error when the file cannot be read further.
func (r *CarRecordReader) Next() (int, *models.CarModel, error) {
	if r.array {
		return r.nextArrayElement()
	}
	return r.nextLine()
}

func (r *CarRecordReader) nextArrayElement() (int, *models.CarModel, error) {
	if !r.decoder.More() {
		if _, err := r.decoder.Token(); err != nil {
			return 0, nil, fmt.Errorf("could not close import array: %w", err)
		}
		return 0, nil, io.EOF
	}

	r.line++
	var raw json.RawMessage
	if err := r.decoder.Decode(&raw); err != nil {
		return r.line, nil, fmt.Errorf("record %d: %w", r.line, err)
	}
	return r.decodeCar(raw)
}

func (r *CarRecordReader) nextLine() (int, *models.CarModel, error) {
	for r.scanner.Scan() {
		r.line++
		raw := bytes.TrimSpace(r.scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		return r.decodeCar(raw)
	}
	if err := r.scanner.Err(); err != nil {
		return r.line, nil, err
	}
	return 0, nil, io.EOF
}

func (r *CarRecordReader) decodeCar(raw []byte) (int, *models.CarModel, error) {
	var car models.CarModel
	if err := json.Unmarshal(raw, &car); err != nil {
		return r.line, nil, &RecordError{Line: r.line, Err: err}
	}
	return r.line, &car, nil
}

func peekNonSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, r.UnreadByte()
	}
}
