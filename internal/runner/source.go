package runner

import (
	"fmt"
	"io"
	"strings"

	"github.com/newhook/harvest/internal/parser"
)

// StdinName is the source name used for standard input.
const StdinName = "<stdin>"

// BufferSource reads r to the end and returns a reusable in-memory source.
// Standard input can only be read once, while several tools may need to scan
// the same input.
func BufferSource(name string, r io.Reader) (parser.Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return parser.StringSource(name, string(data)), nil
}

// buffer reads a single-use source into memory so that detection and every
// tool can open it.
func buffer(src parser.Source) (parser.Source, error) {
	r, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src.Name(), err)
	}
	defer r.Close()

	var sb strings.Builder
	for r.Scan() {
		sb.WriteString(r.Text())
		sb.WriteByte('\n')
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src.Name(), err)
	}
	return parser.StringSource(src.Name(), sb.String()), nil
}

// Clean wraps src so that every line is stripped of CI decorations before
// any tool sees it.
func Clean(src parser.Source) parser.Source {
	return &cleanSource{src: src}
}

type cleanSource struct {
	src parser.Source
}

func (c *cleanSource) Name() string { return c.src.Name() }

func (c *cleanSource) Unwrap() parser.Source { return c.src }

func (c *cleanSource) Open() (parser.LineReader, error) {
	r, err := c.src.Open()
	if err != nil {
		return nil, err
	}
	return &cleanReader{LineReader: r}, nil
}

// Digest hashes the underlying content. Callers must fold the cleaning into
// their cache key.
func (c *cleanSource) Digest() ([32]byte, error) {
	d, ok := c.src.(parser.Digester)
	if !ok {
		return [32]byte{}, errNoDigest
	}
	return d.Digest()
}

type cleanReader struct {
	parser.LineReader
}

func (r *cleanReader) Text() string {
	return parser.CleanLine(r.LineReader.Text())
}
