package provider

import (
	"bufio"
	"io"
	"strings"
)

// sseScanner reads the data payload of Server-Sent Events. Events are
// separated by blank lines; comment lines and fields other than data are
// skipped.
type sseScanner struct {
	reader *bufio.Reader
}

func newSSEScanner(r io.Reader) *sseScanner {
	return &sseScanner{reader: bufio.NewReaderSize(r, 64*1024)}
}

// next returns the data of the next event, or io.EOF at the end of the stream.
func (s *sseScanner) next() (string, error) {
	var dataLines []string
	hasData := false

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil && line == "" {
			if err == io.EOF && hasData {
				return strings.Join(dataLines, "\n"), nil
			}
			return "", err
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if hasData {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		if field == "data" {
			dataLines = append(dataLines, value)
			hasData = true
		}

		if err == io.EOF {
			if hasData {
				return strings.Join(dataLines, "\n"), nil
			}
			return "", io.EOF
		}
	}
}
