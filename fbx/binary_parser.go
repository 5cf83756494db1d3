package fbx

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/japanese"
)

const (
	binaryMagic  = "Kaydara FBX Binary  \x00"
	rootNodeName = "_FBX_ROOT"

	// deflate cannot expand data by more than this factor
	maxDeflateRatio = 1032
)

// recordLayout is the node record header encoding. It is chosen once per file from
// the version: 32-bit fields before 7500, 64-bit fields from 7500 on.
type recordLayout interface {
	readHeader(p *binaryParser) (end, numProps, propLen uint64)
	appendHeader(b []byte, end, numProps, propLen uint64) []byte
	headerLen() int
}

type recordLayout32 struct{}

func (recordLayout32) readHeader(p *binaryParser) (uint64, uint64, uint64) {
	end := p.readUint32()
	numProps := p.readUint32()
	propLen := p.readUint32()
	return uint64(end), uint64(numProps), uint64(propLen)
}

func (recordLayout32) appendHeader(b []byte, end, numProps, propLen uint64) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(end))
	b = binary.LittleEndian.AppendUint32(b, uint32(numProps))
	return binary.LittleEndian.AppendUint32(b, uint32(propLen))
}

func (recordLayout32) headerLen() int { return 12 }

type recordLayout64 struct{}

func (recordLayout64) readHeader(p *binaryParser) (uint64, uint64, uint64) {
	return p.readUint64(), p.readUint64(), p.readUint64()
}

func (recordLayout64) appendHeader(b []byte, end, numProps, propLen uint64) []byte {
	b = binary.LittleEndian.AppendUint64(b, end)
	b = binary.LittleEndian.AppendUint64(b, numProps)
	return binary.LittleEndian.AppendUint64(b, propLen)
}

func (recordLayout64) headerLen() int { return 24 }

func layoutForVersion(version uint32) recordLayout {
	if version >= 7500 {
		return recordLayout64{}
	}
	return recordLayout32{}
}

type positionReader struct {
	r        io.Reader
	position int64
}

func (r *positionReader) Read(p []byte) (n int, err error) {
	n, err = r.r.Read(p)
	r.position += int64(n)
	return n, err
}

func (r *positionReader) SkipTo(pos int64) error {
	offset := pos - r.position
	if offset < 0 {
		return fmt.Errorf("%w: cannot rewind to %d", ErrBadRecord, pos)
	}
	_, err := io.CopyN(io.Discard, r, offset)
	return err
}

type binaryParser struct {
	r       *positionReader
	layout  recordLayout
	version uint32

	node      string // record being read, for error reports
	limit     int64  // end of the current property list
	err       error
	errOffset int64
	errNode   string
}

func newBinaryParser(r io.Reader) *binaryParser {
	return &binaryParser{r: &positionReader{r: bufio.NewReader(r)}}
}

func (p *binaryParser) fail(err error) {
	if p.err == nil {
		p.err = err
		p.errOffset = p.r.position
		p.errNode = p.node
	}
}

func (p *binaryParser) read(v interface{}) {
	if p.err == nil {
		if err := binary.Read(p.r, binary.LittleEndian, v); err != nil {
			p.fail(err)
		}
	}
}

func (p *binaryParser) readUint8() uint8 {
	var v uint8
	p.read(&v)
	return v
}

func (p *binaryParser) readInt16() int16 {
	var v int16
	p.read(&v)
	return v
}

func (p *binaryParser) readInt32() int32 {
	var v int32
	p.read(&v)
	return v
}

func (p *binaryParser) readUint32() uint32 {
	var v uint32
	p.read(&v)
	return v
}

func (p *binaryParser) readInt64() int64 {
	var v int64
	p.read(&v)
	return v
}

func (p *binaryParser) readUint64() uint64 {
	var v uint64
	p.read(&v)
	return v
}

func (p *binaryParser) readFloat() float32 {
	var v float32
	p.read(&v)
	return v
}

func (p *binaryParser) readFloat64() float64 {
	var v float64
	p.read(&v)
	return v
}

func (p *binaryParser) readBytes(n uint32) []byte {
	if p.err != nil {
		return nil
	}
	if int64(n) > p.limit-p.r.position {
		p.fail(fmt.Errorf("%w: value of %d bytes overruns property list", ErrBadRecord, n))
		return nil
	}
	// grows with the data actually read, a corrupt length cannot force a large allocation
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, p.r, int64(n)); err != nil {
		p.fail(err)
		return nil
	}
	return buf.Bytes()
}

// decodeString accepts UTF-8 and falls back to Shift-JIS, which several
// Japanese exporters write.
func decodeString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	s, err := japanese.ShiftJIS.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

func arrayElementSize(typ byte) uint64 {
	switch typ {
	case 'b':
		return 1
	case 'i', 'f':
		return 4
	default:
		return 8
	}
}

func (p *binaryParser) readPropArray(typ uint8) *Property {
	count := p.readUint32()
	encoding := p.readUint32()
	sz := p.readUint32()
	if p.err != nil {
		return nil
	}
	if int64(sz) > p.limit-p.r.position {
		p.fail(fmt.Errorf("%w: array of %d bytes overruns property list", ErrBadRecord, sz))
		return nil
	}
	n := uint64(count) * arrayElementSize(typ)
	switch encoding {
	case 0:
		if n != uint64(sz) {
			p.fail(fmt.Errorf("%w: array length %d does not match %d elements", ErrBadRecord, sz, count))
			return nil
		}
	case 1:
		if n > uint64(sz)*maxDeflateRatio+64 {
			p.fail(fmt.Errorf("%w: implausible compressed array of %d elements", ErrBadRecord, count))
			return nil
		}
	default:
		p.fail(fmt.Errorf("%w: unknown array encoding %d", ErrBadRecord, encoding))
		return nil
	}

	payload := p.readBytes(sz)
	if p.err != nil {
		return nil
	}

	var buf interface{}
	switch typ {
	case 'b':
		buf = make([]byte, count)
	case 'i':
		buf = make([]int32, count)
	case 'l':
		buf = make([]int64, count)
	case 'f':
		buf = make([]float32, count)
	case 'd':
		buf = make([]float64, count)
	}
	if encoding == 0 {
		if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, buf); err != nil {
			p.fail(err)
			return nil
		}
	} else {
		r, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			p.fail(fmt.Errorf("%w: %v", ErrBadRecord, err))
			return nil
		}
		err = binary.Read(r, binary.LittleEndian, buf)
		r.Close()
		if err != nil {
			p.fail(fmt.Errorf("%w: inflate: %v", ErrBadRecord, err))
			return nil
		}
	}
	return &Property{Type: typ, Value: buf, Count: uint(count)}
}

func (p *binaryParser) readProp() *Property {
	typ := p.readUint8()
	if p.err != nil {
		return nil
	}

	switch typ {
	case 'B', 'C':
		return &Property{Type: typ, Value: p.readUint8()}
	case 'Y':
		return &Property{Type: typ, Value: p.readInt16()}
	case 'I':
		return &Property{Type: typ, Value: p.readInt32()}
	case 'L':
		return &Property{Type: typ, Value: p.readInt64()}
	case 'F':
		return &Property{Type: typ, Value: p.readFloat()}
	case 'D':
		return &Property{Type: typ, Value: p.readFloat64()}
	case 'S':
		return &Property{Type: typ, Value: decodeString(p.readBytes(p.readUint32()))}
	case 'R':
		return &Property{Type: typ, Value: p.readBytes(p.readUint32())}
	case 'b', 'i', 'l', 'f', 'd':
		return p.readPropArray(typ)
	}
	p.fail(fmt.Errorf("%w: %q", ErrUnknownProperty, typ))
	return nil
}

// readNode returns nil without error for a null record, which ends a child list.
func (p *binaryParser) readNode() *Node {
	start := p.r.position
	end, nprop, propsz := p.layout.readHeader(p)
	nameLen := p.readUint8()
	if p.err != nil || end == 0 {
		return nil
	}
	p.limit = p.r.position + int64(nameLen)
	name := decodeString(p.readBytes(uint32(nameLen)))
	if p.err != nil {
		return nil
	}
	p.node = name

	propsEnd := p.r.position + int64(propsz)
	if end <= uint64(start) {
		p.fail(fmt.Errorf("%w: end offset %d goes backwards", ErrBadRecord, end))
		return nil
	}
	if nprop > propsz || uint64(propsEnd) > end {
		p.fail(fmt.Errorf("%w: inconsistent record header", ErrBadRecord))
		return nil
	}

	n := &Node{Name: name}
	p.limit = propsEnd
	for i := uint64(0); i < nprop && p.err == nil; i++ {
		n.Properties = append(n.Properties, p.readProp())
	}
	if p.err != nil {
		return nil
	}
	if p.r.position != propsEnd {
		p.fail(fmt.Errorf("%w: property list length mismatch", ErrBadRecord))
		return nil
	}

	for p.r.position < int64(end) && p.err == nil {
		child := p.readNode()
		if child == nil {
			break
		}
		n.Children = append(n.Children, child)
		p.node = name
	}
	if p.err != nil {
		return nil
	}
	if err := p.r.SkipTo(int64(end)); err != nil {
		p.fail(err)
		return nil
	}
	return n
}

func (p *binaryParser) error() error {
	err := p.err
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = ErrTruncated
	}
	return &ParseError{Offset: p.errOffset, Node: p.errNode, Err: err}
}

func (p *binaryParser) Parse() (*Node, uint32, error) {
	magic := make([]byte, len(binaryMagic)+2)
	if _, err := io.ReadFull(p.r, magic); err != nil || string(magic[:len(binaryMagic)]) != binaryMagic {
		return nil, 0, &ParseError{Offset: 0, Err: ErrMalformedHeader}
	}
	p.version = p.readUint32()
	if p.err != nil {
		return nil, 0, p.error()
	}
	if p.version < 7000 {
		return nil, p.version, &ParseError{Offset: 23, Err: fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.version)}
	}
	p.layout = layoutForVersion(p.version)

	root := &Node{Name: rootNodeName}
	for {
		start := p.r.position
		p.node = ""
		node := p.readNode()
		if p.err != nil {
			if p.err == io.EOF && p.errOffset == start {
				// no footer
				break
			}
			return nil, p.version, p.error()
		}
		if node == nil {
			// top level null record, the footer follows
			break
		}
		root.Children = append(root.Children, node)
	}
	return root, p.version, nil
}
