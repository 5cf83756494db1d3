package fbx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

func Load(path string) (*Document, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Parse(r)
}

// Parse reads a binary or text FBX file and builds its object graph.
func Parse(r io.Reader) (*Document, error) {
	root, version, err := ParseNodes(r)
	if err != nil {
		return nil, err
	}
	doc, err := BuildDocument(root)
	if err != nil {
		return nil, err
	}
	doc.Version = version
	return doc, nil
}

// ParseNodes returns the raw node tree and the file version.
func ParseNodes(r io.Reader) (*Node, uint32, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(binaryMagic))
	if strings.HasPrefix(string(head), "Kaydara") {
		return newBinaryParser(br).Parse()
	}
	if !looksLikeText(br) {
		return nil, 0, &ParseError{Offset: 0, Err: ErrMalformedHeader}
	}
	root, err := newTextParser(br).Parse()
	if err != nil {
		return nil, 0, err
	}
	version := uint32(root.FindChild("FBXHeaderExtension").FindChild("FBXVersion").PropInt(0))
	if version < 7000 {
		return nil, version, &ParseError{Offset: -1, Node: "FBXVersion", Err: fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)}
	}
	return root, version, nil
}

func looksLikeText(br *bufio.Reader) bool {
	head, _ := br.Peek(512)
	if len(head) >= 3 && head[0] == 0xef && head[1] == 0xbb && head[2] == 0xbf {
		br.Discard(3)
		head = head[3:]
	}
	for _, c := range head {
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			continue
		case c == ';' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z':
			return true
		default:
			return false
		}
	}
	return false
}
