// Package session provides the connection plumbing shared by the client and
// server engines: dialing with retry, and a framed connection that applies
// the optional security layer to every message.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"remotecmd/protocol"
	"remotecmd/secure"
)

// ErrClosed is returned when the peer closes or resets the connection
// mid-frame.
var ErrClosed = errors.New("session: connection closed")

// DefaultPort is the conventional server port when none is configured.
const DefaultPort = 4440

// DefaultRetryInterval is the initial wait between connection attempts.
const DefaultRetryInterval = time.Second

// DialConfig controls connection establishment.
type DialConfig struct {
	Address string
	Port    int
	// RetryInterval is the initial backoff between attempts; it grows
	// exponentially. Zero means DefaultRetryInterval.
	RetryInterval time.Duration
	// MaxElapsed bounds the total time spent retrying. Zero retries forever.
	MaxElapsed time.Duration
}

// Dial connects to the configured endpoint, retrying on connection refused
// and connection reset. This covers three scenarios identically: server not
// yet started, server mid-restart, and server busy with another client's
// transport backlog. Any other dial failure is permanent.
func Dial(ctx context.Context, cfg DialConfig) (net.Conn, error) {
	addr := net.JoinHostPort(cfg.Address, fmt.Sprintf("%d", cfg.Port))

	b := backoff.NewExponentialBackOff()
	if cfg.RetryInterval > 0 {
		b.InitialInterval = cfg.RetryInterval
	} else {
		b.InitialInterval = DefaultRetryInterval
	}
	b.MaxElapsedTime = cfg.MaxElapsed

	operation := func() (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			if retryable(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return conn, nil
	}
	return backoff.RetryWithData(operation, backoff.WithContext(b, ctx))
}

func retryable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Conn is a framed connection carrying one encoded Request or Response per
// message, sealed with the cipher when one is configured.
type Conn struct {
	conn   net.Conn
	cipher *secure.Cipher
}

// Wrap layers framing and optional encryption over conn. A nil cipher means
// plaintext frames.
func Wrap(conn net.Conn, cipher *secure.Cipher) *Conn {
	return &Conn{conn: conn, cipher: cipher}
}

// WriteMessage seals (when configured) and frames one message.
func (c *Conn) WriteMessage(payload []byte) error {
	if c.cipher != nil {
		sealed, err := c.cipher.Seal(payload)
		if err != nil {
			return err
		}
		payload = sealed
	}
	if err := protocol.WriteFrame(c.conn, payload); err != nil {
		return mapConnError(err)
	}
	return nil
}

// ReadMessage reads and (when configured) opens one message, blocking until
// a complete frame arrives. A closed or reset connection yields ErrClosed;
// an authentication failure yields secure.ErrAuthFailed and the caller must
// drop the connection.
func (c *Conn) ReadMessage() ([]byte, error) {
	payload, err := protocol.ReadFrame(c.conn)
	if err != nil {
		return nil, mapConnError(err)
	}
	if c.cipher != nil {
		return c.cipher.Open(payload)
	}
	return payload, nil
}

// RemoteAddr reports the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

func mapConnError(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return err
}
