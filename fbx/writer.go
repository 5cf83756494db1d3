package fbx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// arrays larger than this are deflated
const compressThreshold = 128

var (
	footerID    = []byte{0xfa, 0xbc, 0xab, 0x09, 0xd0, 0xc8, 0xd4, 0x66, 0xb1, 0x76, 0xfb, 0x83, 0x1c, 0xf7, 0x26, 0x7e}
	footerMagic = []byte{0xf8, 0x5a, 0x8c, 0x6a, 0xde, 0xf5, 0xd9, 0x7e, 0xec, 0xe9, 0x0c, 0xe3, 0x75, 0x8f, 0x29, 0x0b}
)

type binaryWriter struct {
	buf    []byte
	layout recordLayout
}

// WriteBinary writes the children of root as a binary FBX file of the given version.
func WriteBinary(w io.Writer, root *Node, version uint32) error {
	bw := &binaryWriter{layout: layoutForVersion(version)}
	bw.buf = append(bw.buf, binaryMagic...)
	bw.buf = append(bw.buf, 0x1a, 0x00)
	bw.buf = binary.LittleEndian.AppendUint32(bw.buf, version)
	for _, n := range root.Children {
		if err := bw.writeNode(n); err != nil {
			return err
		}
	}
	bw.writeNullRecord()

	bw.buf = append(bw.buf, footerID...)
	bw.buf = append(bw.buf, 0, 0, 0, 0)
	for len(bw.buf)%16 != 0 {
		bw.buf = append(bw.buf, 0)
	}
	bw.buf = binary.LittleEndian.AppendUint32(bw.buf, version)
	bw.buf = append(bw.buf, make([]byte, 120)...)
	bw.buf = append(bw.buf, footerMagic...)

	_, err := w.Write(bw.buf)
	return err
}

func (w *binaryWriter) writeNullRecord() {
	w.buf = append(w.buf, make([]byte, w.layout.headerLen()+1)...)
}

func (w *binaryWriter) writeNode(n *Node) error {
	if len(n.Name) > 255 {
		return fmt.Errorf("fbx: node name too long: %q", n.Name)
	}
	start := len(w.buf)
	w.buf = w.layout.appendHeader(w.buf, 0, 0, 0)
	w.buf = append(w.buf, byte(len(n.Name)))
	w.buf = append(w.buf, n.Name...)

	propStart := len(w.buf)
	for _, p := range n.Properties {
		if err := w.writeProp(p); err != nil {
			return fmt.Errorf("fbx: %s: %w", n.Name, err)
		}
	}
	propLen := len(w.buf) - propStart

	for _, c := range n.Children {
		if err := w.writeNode(c); err != nil {
			return err
		}
	}
	if len(n.Children) > 0 || len(n.Properties) == 0 {
		w.writeNullRecord()
	}
	header := w.layout.appendHeader(nil, uint64(len(w.buf)), uint64(len(n.Properties)), uint64(propLen))
	copy(w.buf[start:], header)
	return nil
}

func (w *binaryWriter) writeProp(p *Property) error {
	w.buf = append(w.buf, p.Type)
	le := binary.LittleEndian
	switch p.Type {
	case 'B', 'C':
		w.buf = append(w.buf, byte(p.ToInt64(0)))
	case 'Y':
		w.buf = le.AppendUint16(w.buf, uint16(p.ToInt64(0)))
	case 'I':
		w.buf = le.AppendUint32(w.buf, uint32(p.ToInt64(0)))
	case 'L':
		w.buf = le.AppendUint64(w.buf, uint64(p.ToInt64(0)))
	case 'F', 'D':
		var err error
		w.buf, err = binary.Append(w.buf, le, p.Value)
		return err
	case 'S', 'R':
		var b []byte
		if s, ok := p.Value.(string); ok {
			b = []byte(s)
		} else {
			b = p.ToBytes()
		}
		w.buf = le.AppendUint32(w.buf, uint32(len(b)))
		w.buf = append(w.buf, b...)
	case 'b', 'i', 'l', 'f', 'd':
		return w.writeArray(p)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProperty, p.Type)
	}
	return nil
}

func (w *binaryWriter) writeArray(p *Property) error {
	var raw bytes.Buffer
	if err := binary.Write(&raw, binary.LittleEndian, p.Value); err != nil {
		return err
	}
	count := uint32(uint64(raw.Len()) / arrayElementSize(p.Type))
	data := raw.Bytes()
	var encoding uint32
	if len(data) > compressThreshold {
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		if _, err := zw.Write(data); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		data = z.Bytes()
		encoding = 1
	}
	w.buf = binary.LittleEndian.AppendUint32(w.buf, count)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, encoding)
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(len(data)))
	w.buf = append(w.buf, data...)
	return nil
}

// WriteText writes the children of root in the text encoding.
func WriteText(w io.Writer, root *Node, version uint32) error {
	var b strings.Builder
	fmt.Fprintf(&b, "; FBX %d.%d.0 project file\n", version/1000, version%1000/100)
	fmt.Fprintln(&b, "; Generator: fbx2gltf")
	fmt.Fprintln(&b, "; ----------------------------------------------------")
	for _, n := range root.Children {
		n.Dump(&b, 0, true)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
