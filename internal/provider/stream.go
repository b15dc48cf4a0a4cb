package provider

import (
	"io"
	"strings"
)

type nextFunc func() (string, *Usage, error)

// Stream yields reply fragments in order. Next returns io.EOF once the reply is
// complete; the concatenation of every fragment is available from Text.
// A Stream cannot be restarted and is not safe for concurrent use.
type Stream struct {
	next   nextFunc
	closer io.Closer
	text   strings.Builder
	usage  *Usage
	done   bool
}

// NewStream builds a Stream from an iteration function. next returns io.EOF
// when there are no more fragments; closer may be nil.
func NewStream(next func() (string, *Usage, error), closer io.Closer) *Stream {
	return &Stream{next: next, closer: closer}
}

// FragmentStream returns a Stream over a fixed list of fragments.
func FragmentStream(fragments ...string) *Stream {
	i := 0
	return NewStream(func() (string, *Usage, error) {
		if i >= len(fragments) {
			return "", nil, io.EOF
		}
		fragment := fragments[i]
		i++
		return fragment, nil, nil
	}, nil)
}

func (s *Stream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		fragment, usage, err := s.next()
		if usage != nil {
			s.usage = usage
		}
		if err != nil {
			if err == io.EOF {
				s.done = true
			}
			return "", err
		}
		if fragment == "" {
			continue
		}

		s.text.WriteString(fragment)
		return fragment, nil
	}
}

// Text returns every fragment received so far, concatenated.
func (s *Stream) Text() string {
	return s.text.String()
}

// Usage returns token usage if the server reported it.
func (s *Stream) Usage() *Usage {
	return s.usage
}

func (s *Stream) Close() error {
	s.done = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
