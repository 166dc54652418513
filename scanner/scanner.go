package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

type TokenType int

const (
	TokenDict    TokenType = iota // '<<'
	TokenArray                    // '['
	TokenName                     // '/Name'
	TokenString                   // literal or hex string
	TokenNumber                   // numeric value
	TokenBoolean                  // true/false
	TokenNull                     // null
	TokenRef                      // indirect ref '5 0 R'
	TokenStream                   // stream payload following the stream keyword
	TokenKeyword                  // other keywords (obj, endobj, >>, ], trailer, ...)
)

type Token struct {
	Type  TokenType
	Str   string
	Int   int64
	Gen   int
	Float float64
	IsInt bool
	Bool  bool
	Bytes []byte
	IsHex bool
	Pos   int64
}

type Scanner interface {
	Next() (Token, error)
	Position() int64
	SeekTo(offset int64) error
	SetNextStreamLength(n int64)
}

type Config struct {
	MaxStringLength int64
}

// pdfScanner tokenizes a fully buffered PDF byte slice.
type pdfScanner struct {
	data          []byte
	pos           int64
	cfg           Config
	nextStreamLen int64
}

// New loads the entire ReaderAt into memory and returns a scanner.
func New(r io.ReaderAt, cfg Config) Scanner {
	return &pdfScanner{data: readAll(r), cfg: cfg, nextStreamLen: -1}
}

// NewBytes returns a scanner over an in-memory buffer.
func NewBytes(data []byte, cfg Config) Scanner {
	return &pdfScanner{data: data, cfg: cfg, nextStreamLen: -1}
}

func readAll(r io.ReaderAt) []byte {
	var buf bytes.Buffer
	const chunk = 64 * 1024
	tmp := make([]byte, chunk)
	for off := int64(0); ; off += chunk {
		n, err := r.ReadAt(tmp, off)
		if n > 0 {
			buf.Write(tmp[:n])
		}
		if err != nil || n < chunk {
			break
		}
	}
	return buf.Bytes()
}

func (s *pdfScanner) Position() int64 { return s.pos }

func (s *pdfScanner) SeekTo(offset int64) error {
	if offset < 0 || offset > int64(len(s.data)) {
		return fmt.Errorf("seek out of range: %d", offset)
	}
	s.pos = offset
	return nil
}

func (s *pdfScanner) SetNextStreamLength(n int64) { s.nextStreamLen = n }

func isWhitespace(c byte) bool {
	return c == 0 || c == '\t' || c == '\n' || c == '\f' || c == '\r' || c == ' '
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool { return !isWhitespace(c) && !isDelimiter(c) }

func (s *pdfScanner) skipWSAndComments() {
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < int64(len(s.data)) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *pdfScanner) peekAhead(n int64) byte {
	if s.pos+n >= int64(len(s.data)) {
		return 0
	}
	return s.data[s.pos+n]
}

func (s *pdfScanner) Next() (Token, error) {
	s.skipWSAndComments()
	if s.pos >= int64(len(s.data)) {
		return Token{}, io.EOF
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peekAhead(1) == '<' {
			s.pos += 2
			return Token{Type: TokenDict, Str: "<<", Pos: start}, nil
		}
		return s.scanHexString()
	case '>':
		if s.peekAhead(1) == '>' {
			s.pos += 2
			return Token{Type: TokenKeyword, Str: ">>", Pos: start}, nil
		}
		s.pos++
		return Token{Type: TokenKeyword, Str: ">", Pos: start}, nil
	case '[':
		s.pos++
		return Token{Type: TokenArray, Str: "[", Pos: start}, nil
	case ']':
		s.pos++
		return Token{Type: TokenKeyword, Str: "]", Pos: start}, nil
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	}
	if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
		return s.scanNumberOrRef()
	}
	if isRegular(c) {
		return s.scanKeyword()
	}
	s.pos++
	return Token{Type: TokenKeyword, Str: string(c), Pos: start}, nil
}

func (s *pdfScanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // consume '/'
	var out []byte
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if !isRegular(c) {
			break
		}
		if c == '#' && s.pos+2 < int64(len(s.data)) {
			if v, err := strconv.ParseUint(string(s.data[s.pos+1:s.pos+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				s.pos += 3
				continue
			}
		}
		out = append(out, c)
		s.pos++
	}
	return Token{Type: TokenName, Str: string(out), Pos: start}, nil
}

func (s *pdfScanner) scanLiteralString() (Token, error) {
	start := s.pos
	s.pos++ // consume '('
	var out []byte
	depth := 1
	for s.pos < int64(len(s.data)) {
		if s.cfg.MaxStringLength > 0 && int64(len(out)) > s.cfg.MaxStringLength {
			return Token{}, errors.New("string exceeds configured maximum")
		}
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.pos >= int64(len(s.data)) {
				return Token{}, errors.New("unterminated string escape")
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				if s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
				// line continuation, emit nothing
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for i := 0; i < 2 && s.pos < int64(len(s.data)); i++ {
						d := s.data[s.pos]
						if d < '0' || d > '7' {
							break
						}
						val = val*8 + int(d-'0')
						s.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Bytes: out, Pos: start}, nil
			}
			out = append(out, c)
		default:
			out = append(out, c)
		}
	}
	return Token{}, errors.New("unterminated literal string")
}

func (s *pdfScanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // consume '<'
	var digits []byte
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			if len(digits)%2 == 1 {
				digits = append(digits, '0')
			}
			out := make([]byte, len(digits)/2)
			for i := 0; i < len(out); i++ {
				v, err := strconv.ParseUint(string(digits[2*i:2*i+2]), 16, 8)
				if err != nil {
					return Token{}, fmt.Errorf("invalid hex string digit: %w", err)
				}
				out[i] = byte(v)
			}
			return Token{Type: TokenString, Bytes: out, IsHex: true, Pos: start}, nil
		}
		if isWhitespace(c) {
			continue
		}
		digits = append(digits, c)
	}
	return Token{}, errors.New("unterminated hex string")
}

// scanNumberOrRef reads a number and, for a non-negative integer, looks ahead
// for the "<gen> R" suffix that makes it an indirect reference.
func (s *pdfScanner) scanNumberOrRef() (Token, error) {
	start := s.pos
	tok, err := s.scanNumber()
	if err != nil {
		return Token{}, err
	}
	if !tok.IsInt || tok.Int < 0 {
		return tok, nil
	}
	save := s.pos
	s.skipWSAndComments()
	if s.pos >= int64(len(s.data)) || s.data[s.pos] < '0' || s.data[s.pos] > '9' {
		s.pos = save
		return tok, nil
	}
	gen, err := s.scanNumber()
	if err != nil || !gen.IsInt || gen.Int < 0 {
		s.pos = save
		return tok, nil
	}
	s.skipWSAndComments()
	if s.pos < int64(len(s.data)) && s.data[s.pos] == 'R' {
		after := s.peekAhead(1)
		if after == 0 || !isRegular(after) {
			s.pos++
			return Token{Type: TokenRef, Int: tok.Int, Gen: int(gen.Int), Pos: start}, nil
		}
	}
	s.pos = save
	return tok, nil
}

func (s *pdfScanner) scanNumber() (Token, error) {
	start := s.pos
	end := s.pos
	isFloat := false
	for end < int64(len(s.data)) {
		c := s.data[end]
		if c == '.' {
			isFloat = true
			end++
			continue
		}
		if c == '+' || c == '-' || (c >= '0' && c <= '9') {
			end++
			continue
		}
		break
	}
	text := string(s.data[start:end])
	s.pos = end
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, fmt.Errorf("invalid real: %q", text)
		}
		return Token{Type: TokenNumber, Float: f, Pos: start}, nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("invalid integer: %q", text)
	}
	return Token{Type: TokenNumber, Int: i, IsInt: true, Pos: start}, nil
}

func (s *pdfScanner) scanKeyword() (Token, error) {
	start := s.pos
	end := s.pos
	for end < int64(len(s.data)) && isRegular(s.data[end]) {
		end++
	}
	word := string(s.data[start:end])
	s.pos = end
	switch word {
	case "true":
		return Token{Type: TokenBoolean, Bool: true, Pos: start}, nil
	case "false":
		return Token{Type: TokenBoolean, Bool: false, Pos: start}, nil
	case "null":
		return Token{Type: TokenNull, Pos: start}, nil
	case "stream":
		return s.scanStream(start)
	}
	return Token{Type: TokenKeyword, Str: word, Pos: start}, nil
}

// scanStream consumes the EOL after the stream keyword, then either reads the
// announced number of bytes or scans forward for the endstream keyword.
func (s *pdfScanner) scanStream(start int64) (Token, error) {
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\r' {
		s.pos++
	}
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
		s.pos++
	}
	length := s.nextStreamLen
	s.nextStreamLen = -1
	if length >= 0 && s.pos+length <= int64(len(s.data)) {
		data := s.data[s.pos : s.pos+length]
		s.pos += length
		s.consumeEndstream()
		return Token{Type: TokenStream, Bytes: data, Pos: start}, nil
	}
	idx := bytes.Index(s.data[s.pos:], []byte("endstream"))
	if idx < 0 {
		return Token{}, errors.New("endstream not found")
	}
	data := s.data[s.pos : s.pos+int64(idx)]
	data = bytes.TrimRight(data, "\r\n")
	s.pos += int64(idx) + int64(len("endstream"))
	return Token{Type: TokenStream, Bytes: data, Pos: start}, nil
}

func (s *pdfScanner) consumeEndstream() {
	s.skipWSAndComments()
	if bytes.HasPrefix(s.data[s.pos:], []byte("endstream")) {
		s.pos += int64(len("endstream"))
	}
}
