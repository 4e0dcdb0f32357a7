package parser

// LookaheadStream is a forward-only cursor over input lines. Lines that have
// been peeked at are buffered, so any number of upcoming lines can be
// inspected without re-reading the input. The cursor never rewinds.
type LookaheadStream struct {
	r     LineReader
	clean func(string) string
	buf   []string
	line  int
	eof   bool
	err   error
}

// NewLookaheadStream wraps r. When clean is non-nil it is applied to every
// line as it is read.
func NewLookaheadStream(r LineReader, clean func(string) string) *LookaheadStream {
	return &LookaheadStream{r: r, clean: clean}
}

// fill reads until n lines are buffered or the input ends.
func (s *LookaheadStream) fill(n int) bool {
	for len(s.buf) < n && !s.eof {
		if !s.r.Scan() {
			s.eof = true
			s.err = s.r.Err()
			break
		}
		text := s.r.Text()
		if s.clean != nil {
			text = s.clean(text)
		}
		s.buf = append(s.buf, text)
	}
	return len(s.buf) >= n
}

// HasNext returns true if another line can be consumed.
func (s *LookaheadStream) HasNext() bool {
	return s.fill(1)
}

// Next consumes and returns the next line. It returns "" at end of input.
func (s *LookaheadStream) Next() string {
	if !s.fill(1) {
		return ""
	}
	text := s.buf[0]
	s.buf[0] = ""
	s.buf = s.buf[1:]
	s.line++
	return text
}

// PeekNext returns the next line without consuming it, or "" at end of input.
func (s *LookaheadStream) PeekNext() string {
	text, _ := s.Peek(1)
	return text
}

// Peek returns the n-th unread line (1 is the next line) without consuming
// anything. It reports false when the input ends first.
func (s *LookaheadStream) Peek(n int) (string, bool) {
	if n < 1 || !s.fill(n) {
		return "", false
	}
	return s.buf[n-1], true
}

// NextWhile consumes lines as long as keep accepts the upcoming line and
// returns them. The first rejected line stays unread.
func (s *LookaheadStream) NextWhile(keep func(line string) bool) []string {
	var lines []string
	for s.HasNext() && keep(s.PeekNext()) {
		lines = append(lines, s.Next())
	}
	return lines
}

// LineNumber returns the 1-based number of the last consumed line, or 0
// before the first call to Next.
func (s *LookaheadStream) LineNumber() int {
	return s.line
}

// Err returns the read error that ended the input, if any.
func (s *LookaheadStream) Err() error {
	return s.err
}
