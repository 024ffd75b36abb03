package llm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	perrors "github.com/p-blackswan/questplan/internal/errors"
)

// maxErrorBody bounds how much of an error response is kept in the message.
const maxErrorBody = 2048

// statusError turns a non-2xx response into an APIError.
func statusError(service string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return perrors.NewAPIError(service, resp.StatusCode, msg)
}

// transportError classifies a failed round trip.
func transportError(service string, err error) error {
	return fmt.Errorf("%s http: %w: %v", service, perrors.ErrUnavailable, err)
}

// readSSE calls fn with the data payload of each server-sent event line
// until fn reports done, the body ends, or ctx is cancelled.
func readSSE(ctx context.Context, body io.Reader, fn func(data string) (done bool, err error)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		done, err := fn(strings.TrimSpace(data))
		if err != nil || done {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

// pump runs read in a goroutine, forwarding tokens and closing out when the
// stream ends. A clean end sends a Done token; a failure sends an Error token.
func pump(ctx context.Context, body io.ReadCloser, out chan<- Token, read func(emit func(string) bool) error) {
	go func() {
		defer body.Close()
		defer close(out)

		emit := func(text string) bool {
			select {
			case out <- Token{Text: text}:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if err := read(emit); err != nil {
			select {
			case out <- Token{Error: err}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case out <- Token{Done: true}:
		case <-ctx.Done():
		}
	}()
}
