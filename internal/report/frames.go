package report

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Frame markers of the report stream.
const (
	dataPrefix  = "data: "
	doneToken   = "[DONE]"
	errorPrefix = "[ERROR]"
)

// FrameKind classifies one frame of the report stream.
type FrameKind int

const (
	FrameIgnored FrameKind = iota // not a data frame
	FrameToken                    // a text token to append
	FrameDone                     // end-of-stream sentinel
	FrameError                    // the backend gave up mid-stream
)

// Frame is one blank-line terminated block of the report stream.
type Frame struct {
	Kind FrameKind
	Data string // the token, or the error message for FrameError
}

// ParseFrame classifies a raw frame. Only frames starting with "data: "
// carry anything. A token spanning several lines is either sent raw or
// with every line prefixed by "data: "; both decode to the same text.
func ParseFrame(raw string) Frame {
	if !strings.HasPrefix(raw, dataPrefix) {
		return Frame{Kind: FrameIgnored}
	}
	lines := strings.Split(raw[len(dataPrefix):], "\n")
	for i := 1; i < len(lines); i++ {
		lines[i] = strings.TrimPrefix(lines[i], dataPrefix)
	}
	token := strings.Join(lines, "\n")
	switch {
	case token == doneToken:
		return Frame{Kind: FrameDone}
	case strings.HasPrefix(token, errorPrefix):
		return Frame{Kind: FrameError, Data: strings.TrimSpace(token[len(errorPrefix):])}
	default:
		return Frame{Kind: FrameToken, Data: token}
	}
}

// maxFrameSize bounds a single frame held in memory.
const maxFrameSize = 1 << 20

// FrameReader splits a report stream into frames as bytes arrive.
// A trailing block without its blank-line terminator is discarded.
type FrameReader struct {
	sc *bufio.Scanner
}

// NewFrameReader returns a reader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxFrameSize)
	sc.Split(splitFrames)
	return &FrameReader{sc: sc}
}

// Next returns the next frame. It returns io.EOF at the end of the stream.
func (fr *FrameReader) Next() (Frame, error) {
	if !fr.sc.Scan() {
		if err := fr.sc.Err(); err != nil {
			return Frame{}, err
		}
		return Frame{}, io.EOF
	}
	return ParseFrame(fr.sc.Text()), nil
}

func splitFrames(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.Index(data, []byte("\n\n")); i >= 0 {
		return i + 2, data[:i], nil
	}
	if atEOF {
		return len(data), nil, nil
	}
	return 0, nil, nil
}

// WriteToken writes token as a data frame and flushes it to the client.
func WriteToken(w io.Writer, token string) error {
	return writeFrame(w, token)
}

// WriteDone writes the end-of-stream sentinel.
func WriteDone(w io.Writer) error {
	return writeFrame(w, doneToken)
}

// WriteError writes an error frame carrying msg.
func WriteError(w io.Writer, msg string) error {
	return writeFrame(w, errorPrefix+" "+msg)
}

// writeFrame prefixes every line of payload so that blank lines inside a
// token cannot end the frame early.
func writeFrame(w io.Writer, payload string) error {
	payload = strings.ReplaceAll(payload, "\n", "\n"+dataPrefix)
	if _, err := fmt.Fprintf(w, "%s%s\n\n", dataPrefix, payload); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
