package parser

import (
	"bufio"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// LineReader yields decoded input lines, one at a time, in the style of
// bufio.Scanner.
type LineReader interface {
	Scan() bool
	Text() string
	Err() error
	Close() error
}

// Source is a named input that can be opened for reading.
type Source interface {
	Name() string
	Open() (LineReader, error)
}

// Digester is implemented by sources that can hash their content without
// being parsed, so results can be cached by content.
type Digester interface {
	Digest() ([32]byte, error)
}

// lineReader splits its input on newlines. Unlike bufio.Scanner it puts no
// bound on the length of a line: JSON reports are commonly a single line of
// several megabytes.
type lineReader struct {
	br     *bufio.Reader
	closer io.Closer
	line   string
	err    error
	done   bool
}

func newLineReader(r io.Reader, closer io.Closer) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, 64*1024), closer: closer}
}

func (l *lineReader) Scan() bool {
	if l.done {
		return false
	}
	text, err := l.br.ReadString('\n')
	if err != nil {
		l.done = true
		if !errors.Is(err, io.EOF) {
			l.err = err
			return false
		}
		if text == "" {
			return false
		}
	}
	l.line = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
	return true
}

// Text returns the current line without its line terminator.
func (l *lineReader) Text() string { return l.line }

func (l *lineReader) Err() error { return l.err }

func (l *lineReader) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

type fileSource struct {
	path string
}

// FileSource returns a Source reading the file at path.
func FileSource(path string) Source {
	return &fileSource{path: path}
}

func (f *fileSource) Name() string { return f.path }

func (f *fileSource) Open() (LineReader, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	return newLineReader(file, file), nil
}

func (f *fileSource) Digest() ([32]byte, error) {
	var sum [32]byte
	file, err := os.Open(f.path)
	if err != nil {
		return sum, err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return sum, fmt.Errorf("failed to hash %s: %w", f.path, err)
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

type stringSource struct {
	name string
	text string
}

// StringSource returns a Source over an in-memory text. It can be opened
// any number of times.
func StringSource(name, text string) Source {
	return &stringSource{name: name, text: text}
}

func (s *stringSource) Name() string { return s.name }

func (s *stringSource) Open() (LineReader, error) {
	return newLineReader(strings.NewReader(s.text), nil), nil
}

func (s *stringSource) Digest() ([32]byte, error) {
	return sha256.Sum256([]byte(s.text)), nil
}

// ErrSourceConsumed is returned when a single-use ReaderSource is opened twice.
var ErrSourceConsumed = errors.New("source already consumed")

type readerSource struct {
	name   string
	mu     sync.Mutex
	r      io.Reader
	opened bool
}

// ReaderSource returns a single-use Source over r, such as standard input.
func ReaderSource(name string, r io.Reader) Source {
	return &readerSource{name: name, r: r}
}

func (s *readerSource) Name() string { return s.name }

func (s *readerSource) Open() (LineReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil, ErrSourceConsumed
	}
	s.opened = true
	var closer io.Closer
	if c, ok := s.r.(io.Closer); ok {
		closer = c
	}
	return newLineReader(s.r, closer), nil
}

// SingleUse reports whether src can only be opened once. Wrapping sources
// expose what they wrap through an Unwrap method.
func SingleUse(src Source) bool {
	for {
		switch s := src.(type) {
		case *readerSource:
			return true
		case interface{ Unwrap() Source }:
			src = s.Unwrap()
		default:
			return false
		}
	}
}
