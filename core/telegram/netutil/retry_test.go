package netutil

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":        {nil, false},
		"plain":      {errors.New("bad request"), false},
		"timeout":    {timeoutErr{}, true},
		"dial":       {&net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		"reset":      {fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		"short body": {io.ErrUnexpectedEOF, true},
		"url wrap":   {&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}, true},
		"url plain":  {&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: errors.New("x")}, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldRetry(tc.err))
		})
	}
}
