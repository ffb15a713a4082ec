package runner

import (
	"bufio"
	"io"
	"strings"
)

// drainLines reads r to EOF one line at a time and reassembles the text with
// every line terminated by '\n'. "\r\n" and lone '\r' count as terminators.
// On a read error the text read so far is returned along with the error.
func drainLines(r io.Reader) (string, error) {
	var out strings.Builder
	out.Grow(200)

	br := bufio.NewReader(r)
	for {
		chunk, err := br.ReadString('\n')
		if chunk != "" {
			appendLines(&out, chunk)
		}
		if err == io.EOF {
			return out.String(), nil
		}
		if err != nil {
			return out.String(), err
		}
	}
}

// drainWatched drains r and settles the race with dog as soon as the read
// side reaches the end, so nothing done afterwards counts against the timeout.
func drainWatched(r io.ReadCloser, dog *watchdog) (string, bool, error) {
	text, err := drainLines(r)
	timedOut := dog.finish()
	_ = r.Close()
	return text, timedOut, err
}

func appendLines(b *strings.Builder, chunk string) {
	chunk = strings.TrimSuffix(chunk, "\n")
	chunk = strings.TrimSuffix(chunk, "\r")
	for _, line := range strings.Split(chunk, "\r") {
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if t.limit <= 0 {
		return n, nil
	}
	if len(p) >= t.limit {
		t.buf = append(t.buf[:0], p[len(p)-t.limit:]...)
		return n, nil
	}
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}
