// Package client implements the client engine: it resolves a command name
// to a transport call with transparent reconnection, and optionally builds a
// local proxy mirroring a declared method/property surface.
//
// Each call establishes its own connection — connect (with retry), send one
// request, await one response, close. There is no long-lived session to
// recover after a server restart, which trades per-call setup latency for
// eliminating ambiguous half-open-session state.
package client

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"remotecmd/logging"
	"remotecmd/message"
	"remotecmd/secure"
	"remotecmd/session"
	"remotecmd/value"
)

// RemoteError carries a failure reported by the server: the remote message
// and its kind tag ("application", "command", "argument", "busy").
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s error: %s", e.Kind, e.Message)
}

// Config carries the immutable connection parameters of one client instance.
type Config struct {
	Address string // default "localhost"
	Port    int    // default 4440
	Secret  string // must match the server's secret when one is configured
	// RetryInterval is the initial wait between connect attempts (grows
	// exponentially). Zero means one second.
	RetryInterval time.Duration
	// RetryCeiling bounds the total time spent retrying a connect.
	// Zero retries forever.
	RetryCeiling time.Duration
}

// Client issues remote calls. Safe for sequential use; each call is
// synchronous and blocks until a response arrives or the connect loop gives
// up.
type Client struct {
	cfg    Config
	cipher *secure.Cipher
	log    *logging.Logger
}

// Option customizes a client.
type Option func(*Client)

// WithLogger enables connection logging; clients are silent by default.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client. The security layer is activated when cfg.Secret is
// non-empty and must match the server's configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Address == "" || cfg.Address == "*" {
		cfg.Address = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = session.DefaultPort
	}
	c := &Client{cfg: cfg, log: logging.Discard()}
	if cfg.Secret != "" {
		cipher, err := secure.New(cfg.Secret)
		if err != nil {
			return nil, err
		}
		c.cipher = cipher
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Call invokes a remote command with positional arguments and returns its
// payload (nil for commands without a meaningful return value).
func (c *Client) Call(name string, args ...any) (any, error) {
	return c.CallKw(name, args, nil)
}

// CallKw invokes a remote command with positional and keyword arguments.
func (c *Client) CallKw(name string, args []any, kwargs map[string]any) (any, error) {
	resp, err := c.roundTrip(&message.Request{Command: name, Args: args, Kwargs: kwargs})
	if err != nil {
		return nil, err
	}
	return unpack(resp)
}

func (c *Client) roundTrip(req *message.Request) (*message.Response, error) {
	// Unrepresentable arguments fail here, before any network activity.
	out, err := message.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	conn, err := session.Dial(context.Background(), session.DialConfig{
		Address:       c.cfg.Address,
		Port:          c.cfg.Port,
		RetryInterval: c.cfg.RetryInterval,
		MaxElapsed:    c.cfg.RetryCeiling,
	})
	if err != nil {
		return nil, err
	}
	sc := session.Wrap(conn, c.cipher)
	defer sc.Close()
	c.log.Printf("connected to %s for %q", sc.RemoteAddr(), req.Command)

	if err := sc.WriteMessage(out); err != nil {
		return nil, err
	}
	// Once the request is written there is no resend: a retried delivery
	// could double-execute a non-idempotent device command.
	payload, err := sc.ReadMessage()
	if err != nil {
		return nil, err
	}
	return message.DecodeResponse(payload)
}

func unpack(resp *message.Response) (any, error) {
	switch resp.Tag {
	case message.TagOK, message.TagClose:
		return nil, nil
	case message.TagData, message.TagHelp:
		return resp.Payload, nil
	case message.TagError:
		if e, ok := resp.Payload.(*value.Error); ok {
			return nil, &RemoteError{Kind: e.Kind, Message: e.Message}
		}
		return nil, &RemoteError{Kind: "unknown", Message: fmt.Sprintf("%v", resp.Payload)}
	}
	return nil, fmt.Errorf("client: unexpected response tag %s", resp.Tag)
}

// Commands returns the server-reported command names partitioned into calls
// and properties.
func (c *Client) Commands() (calls, props []string, err error) {
	payload, err := c.Call("help")
	if err != nil {
		return nil, nil, err
	}
	listing, ok := payload.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("client: unexpected help payload %T", payload)
	}
	return toStrings(listing["calls"]), toStrings(listing["properties"]), nil
}

// Help returns human-readable documentation: the partitioned command listing
// without arguments, or one command's doc string.
func (c *Client) Help(name ...string) (string, error) {
	if len(name) > 0 {
		payload, err := c.Call("help", name[0])
		if err != nil {
			return "", err
		}
		doc, ok := payload.(string)
		if !ok {
			return "", fmt.Errorf("client: unexpected help payload %T", payload)
		}
		return doc, nil
	}
	calls, props, err := c.Commands()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Available calls: [%s]\nAvailable properties: [%s]",
		strings.Join(calls, " "), strings.Join(props, " ")), nil
}

// Close sends the close command for protocol compatibility and releases
// local resources. With per-call connections there is no server-side session
// to terminate, so this is a single best-effort attempt with no retry.
func (c *Client) Close() error {
	addr := net.JoinHostPort(c.cfg.Address, fmt.Sprintf("%d", c.cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		return nil // nothing reachable to close
	}
	sc := session.Wrap(conn, c.cipher)
	defer sc.Close()
	out, err := message.EncodeRequest(&message.Request{Command: "close"})
	if err != nil {
		return err
	}
	if err := sc.WriteMessage(out); err != nil {
		return nil
	}
	sc.ReadMessage() // acknowledgement, best effort
	return nil
}

func toStrings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, elem := range list {
		if s, ok := elem.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
