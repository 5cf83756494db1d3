package fbx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type tokenType int

const (
	Ident tokenType = iota
	Number
	String
	Operator
	BlockStart
	BlockEnd
	EOL
	EOF
)

func (t tokenType) String() string {
	return [...]string{"ident", "number", "string", "operator", "{", "}", "EOL", "EOF"}[t]
}

type textParser struct {
	r    *bufio.Reader
	buf  []byte
	line int
	node string
	err  error
}

func newTextParser(r io.Reader) *textParser {
	return &textParser{r: bufio.NewReader(r), line: 1}
}

func (p *textParser) errorf(f string, a ...interface{}) error {
	if p.err == nil || p.err == io.EOF {
		p.err = &ParseError{Offset: -1, Line: p.line, Node: p.node, Err: fmt.Errorf(f, a...)}
	}
	return p.err
}

func (p *textParser) read() byte {
	var b byte
	if len(p.buf) > 0 {
		b = p.buf[len(p.buf)-1]
		p.buf = p.buf[:len(p.buf)-1]
	} else if p.err == nil {
		var err error
		b, err = p.r.ReadByte()
		if err != nil {
			p.err = err
			return 0
		}
	}
	if b == '\n' {
		p.line++
	}
	return b
}

func (p *textParser) unread(c byte) {
	if c == '\n' {
		p.line--
	}
	p.buf = append(p.buf, c)
}

func isIdentChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_' || c == '|' || c >= '0' && c <= '9' || c == '-'
}

func isNumberChar(c byte) bool {
	return c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' || c == '-' || c == '+'
}

func (p *textParser) getToken() (tokenType, string) {
	for p.err == nil {
		c := p.read()
		if p.err != nil {
			break
		}
		if c == ';' {
			for p.err == nil && c != '\n' {
				c = p.read()
			}
			if c == '\n' {
				return EOL, ""
			}
			continue
		} else if c == '{' {
			return BlockStart, string(c)
		} else if c == '}' {
			return BlockEnd, string(c)
		} else if c == '*' || c == ':' || c == ',' {
			return Operator, string(c)
		} else if c >= '0' && c <= '9' || c == '.' || c == '-' || c == '+' {
			buf := []byte{c}
			for c = p.read(); isNumberChar(c) && p.err == nil; c = p.read() {
				buf = append(buf, c)
			}
			if p.err == nil {
				p.unread(c)
			}
			return Number, string(buf)
		} else if c == '\n' {
			return EOL, ""
		} else if c == '"' {
			buf := []byte{}
			for c = p.read(); c != '"' && p.err == nil; c = p.read() {
				buf = append(buf, c)
			}
			if p.err != nil {
				p.errorf("unterminated string")
				break
			}
			return String, strings.ReplaceAll(string(buf), "&quot;", `"`)
		} else if isIdentChar(c) {
			buf := []byte{}
			for ; isIdentChar(c) && p.err == nil; c = p.read() {
				buf = append(buf, c)
			}
			if p.err == nil {
				p.unread(c)
			}
			return Ident, string(buf)
		} else if c == ' ' || c == '\t' || c == '\r' {
			continue
		} else {
			p.errorf("unexpected character %q", c)
		}
	}
	return EOF, ""
}

func (p *textParser) Skip(t tokenType) bool {
	typ, s := p.getToken()
	if typ != t {
		p.errorf("expected %v, got %v %q", t, typ, s)
	}
	return typ == t
}

func parseNumber(s string) (*Property, error) {
	if strings.ContainsAny(s, ".eE") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		return &Property{Type: 'D', Value: v}, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &Property{Type: 'L', Value: v}, nil
}

// parseArrayProp reads "N { a: v,v,... }". Arrays holding only integers become
// []int64 so that KTime values keep their precision.
func (p *textParser) parseArrayProp() *Property {
	_, s := p.getToken()
	size, err := strconv.ParseInt(s, 10, 32)
	if err != nil || size < 0 {
		p.errorf("invalid array size %q", s)
		return nil
	}
	p.Skip(BlockStart)
	for p.err == nil {
		typ, s := p.getToken()
		if s == ":" {
			break
		} else if typ == BlockEnd || typ == EOF {
			p.errorf("array without values")
			return nil
		}
	}
	var ivalues []int64
	var dvalues []float64
	isFloat := false
	for p.err == nil {
		typ, s := p.getToken()
		if typ == EOL || typ == Operator {
			continue
		} else if typ == BlockEnd {
			break
		} else if typ != Number {
			p.errorf("invalid array element %q", s)
			break
		}
		v, err := parseNumber(s)
		if err != nil {
			p.errorf("invalid number %q", s)
			break
		}
		if v.Type == 'D' && !isFloat {
			isFloat = true
			dvalues = make([]float64, len(ivalues))
			for i, iv := range ivalues {
				dvalues[i] = float64(iv)
			}
		}
		if isFloat {
			dvalues = append(dvalues, v.ToFloat64(0))
		} else {
			ivalues = append(ivalues, v.ToInt64(0))
		}
	}
	if p.err != nil {
		return nil
	}
	if isFloat {
		if len(dvalues) != int(size) {
			p.errorf("array size %d != %d", size, len(dvalues))
		}
		return &Property{Type: 'd', Value: dvalues, Count: uint(size)}
	}
	if len(ivalues) != int(size) {
		p.errorf("array size %d != %d", size, len(ivalues))
	}
	if ivalues == nil {
		ivalues = []int64{}
	}
	return &Property{Type: 'l', Value: ivalues, Count: uint(size)}
}

func (p *textParser) parseNodeList(depth int) []*Node {
	var nodes []*Node
	for p.err == nil {
		typ, s := p.getToken()
		if typ == EOL {
			continue
		} else if typ == EOF {
			break
		} else if typ == BlockEnd {
			if depth == 0 {
				p.errorf("unbalanced '}'")
			}
			break
		} else if typ != Ident {
			p.errorf("expected node name, got %v %q", typ, s)
			break
		}
		p.node = s
		p.Skip(Operator)
		node := &Node{Name: s}
		nodes = append(nodes, node)
		continued := false
		for p.err == nil {
			typ, s := p.getToken()
			if typ == EOL {
				if continued {
					continue
				}
				break
			} else if typ == EOF {
				break
			}
			continued = false
			if typ == BlockStart {
				node.Children = p.parseNodeList(depth + 1)
				p.node = node.Name
				break
			} else if typ == Number {
				v, err := parseNumber(s)
				if err != nil {
					p.errorf("invalid number %q", s)
					break
				}
				node.Properties = append(node.Properties, v)
			} else if typ == String {
				node.Properties = append(node.Properties, &Property{Type: 'S', Value: s})
			} else if typ == Ident {
				// bare tokens such as Y, T or W
				if len(s) == 1 {
					node.Properties = append(node.Properties, &Property{Type: 'C', Value: s[0]})
				} else {
					node.Properties = append(node.Properties, &Property{Type: 'S', Value: s})
				}
			} else if typ == Operator && s == "*" {
				if prop := p.parseArrayProp(); prop != nil {
					node.Properties = append(node.Properties, prop)
				}
			} else if typ == Operator && s == "," {
				continued = true
			} else {
				p.errorf("unexpected %v %q", typ, s)
			}
		}
	}
	if depth > 0 && p.err == io.EOF {
		p.errorf("unexpected end of file")
	}
	return nodes
}

func (p *textParser) Parse() (*Node, error) {
	root := &Node{Name: rootNodeName}
	root.Children = p.parseNodeList(0)
	if p.err != nil && p.err != io.EOF {
		var perr *ParseError
		if errors.As(p.err, &perr) {
			return nil, perr
		}
		return nil, &ParseError{Offset: -1, Line: p.line, Node: p.node, Err: p.err}
	}
	return root, nil
}
