package fbx

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedHeader indicates the input is neither binary nor text FBX.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrUnsupportedVersion indicates a file version older than 7000.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrTruncated indicates the input ended inside a record.
	ErrTruncated = errors.New("truncated data")
	// ErrUnknownProperty indicates an unknown property type code.
	ErrUnknownProperty = errors.New("unknown property type")
	// ErrBadRecord indicates inconsistent record offsets or sizes.
	ErrBadRecord = errors.New("bad record")
)

// ParseError reports where parsing failed. Offset is the byte offset for
// binary files (-1 when unknown), Line the line number for text files.
type ParseError struct {
	Offset int64
	Line   int
	Node   string
	Err    error
}

func (e *ParseError) Error() string {
	var pos string
	if e.Line > 0 {
		pos = fmt.Sprintf("line %d", e.Line)
	} else if e.Offset >= 0 {
		pos = fmt.Sprintf("offset %d", e.Offset)
	}
	if e.Node != "" {
		if pos != "" {
			pos += " "
		}
		pos += "in " + e.Node
	}
	if pos == "" {
		return "fbx: " + e.Err.Error()
	}
	return fmt.Sprintf("fbx: %v (%s)", e.Err, pos)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
