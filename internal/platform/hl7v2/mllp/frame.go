// Package mllp implements the Minimal Lower Layer Protocol used to carry
// HL7 v2 messages over TCP: a server that dispatches framed payloads to a
// handler, and a client that sends a message and waits for its
// acknowledgment.
package mllp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	// StartBlock opens a frame (VT).
	StartBlock = 0x0B
	// EndBlock closes a frame (FS).
	EndBlock = 0x1C
	// CarriageReturn follows EndBlock.
	CarriageReturn = 0x0D

	// DefaultMaxMessageSize bounds a single payload (1 MB).
	DefaultMaxMessageSize = 1 << 20
)

var (
	ErrMessageTooLarge = errors.New("mllp: message exceeds maximum size")
	ErrBadFrame        = errors.New("mllp: malformed frame")
)

var endSeq = []byte{EndBlock, CarriageReturn}

// Frame wraps data as <VT> data <FS><CR>.
func Frame(data []byte) []byte {
	frame := make([]byte, 0, len(data)+3)
	frame = append(frame, StartBlock)
	frame = append(frame, data...)
	return append(frame, EndBlock, CarriageReturn)
}

// Unframe extracts the first complete frame of data. Bytes before the start
// block are skipped. It returns the payload, the bytes after the frame and
// whether a complete frame was found.
func Unframe(data []byte) (message, rest []byte, found bool) {
	start := bytes.IndexByte(data, StartBlock)
	if start < 0 {
		return nil, data, false
	}
	end := bytes.Index(data[start+1:], endSeq)
	if end < 0 {
		return nil, data, false
	}
	end += start + 1
	return data[start+1 : end], data[end+2:], true
}

// Reader reads successive frames from a stream.
type Reader struct {
	r   *bufio.Reader
	max int
}

// NewReader creates a reader. max bounds each payload; zero means
// DefaultMaxMessageSize.
func NewReader(r io.Reader, max int) *Reader {
	if max <= 0 {
		max = DefaultMaxMessageSize
	}
	return &Reader{r: bufio.NewReader(r), max: max}
}

// ReadMessage returns the next payload. Noise between frames is discarded.
// A stream that ends between frames returns io.EOF; one that ends inside a
// frame returns io.ErrUnexpectedEOF.
func (r *Reader) ReadMessage() ([]byte, error) {
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == StartBlock {
			break
		}
	}
	var buf []byte
	for {
		b, err := r.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		switch b {
		case EndBlock:
			next, err := r.r.ReadByte()
			if err != nil {
				if err == io.EOF {
					return nil, io.ErrUnexpectedEOF
				}
				return nil, err
			}
			if next != CarriageReturn {
				return nil, fmt.Errorf("%w: 0x%02X after end block", ErrBadFrame, next)
			}
			return buf, nil
		case StartBlock:
			// A new frame before the end block: drop the partial one.
			buf = buf[:0]
			continue
		}
		if len(buf) >= r.max {
			return nil, ErrMessageTooLarge
		}
		buf = append(buf, b)
	}
}

// Writer writes frames to a stream.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// WriteMessage writes data as one frame.
func (w *Writer) WriteMessage(data []byte) error {
	_, err := w.w.Write(Frame(data))
	return err
}
