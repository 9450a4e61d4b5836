// Package server implements the server engine: it accepts one connection at
// a time and serially dispatches that session's requests against the command
// table.
//
// Request processing pipeline:
//
//	Accept conn → serveSession (single session at a time)
//	  → for each request: ReadMessage → DecodeRequest → Middleware Chain →
//	    dispatch (command table / built-ins) → EncodeResponse → WriteMessage
//
// Exclusivity rationale: concurrent sessions could interleave mutually
// exclusive device state changes, so access is serialized at the session
// granularity. While a session is active, further inbound connections stay
// queued at the transport level; their clients' connect loops keep retrying.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"remotecmd/command"
	"remotecmd/logging"
	"remotecmd/message"
	"remotecmd/middleware"
	"remotecmd/secure"
	"remotecmd/session"
	"remotecmd/value"
)

// Config carries the immutable connection parameters of one server instance.
type Config struct {
	Address string // bind address; "" or "*" means all interfaces
	Port    int    // 0 picks an ephemeral port; the daemon config defaults to 4440
	Secret  string // non-empty enables the authenticated-encryption layer
}

// Server owns the command table and the device state objects registered into
// it for the lifetime of the process.
type Server struct {
	cfg         Config
	table       *command.Table
	cipher      *secure.Cipher
	log         *logging.Logger
	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc

	mu       sync.Mutex
	listener net.Listener
	active   net.Conn
	shutdown atomic.Bool
	done     chan struct{}
}

// Option customizes a server.
type Option func(*Server)

// WithLogger replaces the default stderr logger.
func WithLogger(log *logging.Logger) Option {
	return func(s *Server) { s.log = log }
}

// New creates a server with an empty command table. The security layer is
// activated when cfg.Secret is non-empty.
func New(cfg Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:   cfg,
		table: command.NewTable(),
		log:   logging.New("[server]"),
		done:  make(chan struct{}),
	}
	if cfg.Secret != "" {
		cipher, err := secure.New(cfg.Secret)
		if err != nil {
			return nil, err
		}
		s.cipher = cipher
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterFunc registers a plain function as a command. See
// command.Table.RegisterFunc.
func (s *Server) RegisterFunc(fn any, opts ...command.FuncOption) error {
	return s.table.RegisterFunc(fn, opts...)
}

// RegisterInstance registers a stateful instance's public surface under
// prefix. See command.Table.RegisterInstance.
func (s *Server) RegisterInstance(rcvr any, prefix string) error {
	return s.table.RegisterInstance(rcvr, prefix)
}

// Use appends a middleware. Middlewares run in registration order around
// every dispatched request.
func (s *Server) Use(mw middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw)
}

// Listen binds the listener and prints the startup banner. It may be called
// before Run to learn the bound port; Run calls it implicitly otherwise.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(parseBindAddress(s.cfg.Address), fmt.Sprintf("%d", s.cfg.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
	s.banner(l)
	return nil
}

// Port reports the actually bound port. Valid after Listen.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Run serves sessions until Shutdown. The command table is frozen and the
// middleware chain built once, before the first connection is accepted.
func (s *Server) Run() error {
	defer close(s.done)

	s.mu.Lock()
	listening := s.listener != nil
	s.mu.Unlock()
	if !listening {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	// The chain wraps the dispatch handler once at startup, not per request.
	s.handler = middleware.Chain(s.middlewares...)(s.dispatch)
	s.table.Freeze()

	for {
		s.mu.Lock()
		l := s.listener
		s.mu.Unlock()
		conn, err := l.Accept()
		if err != nil {
			// During shutdown, closing the listener makes Accept fail.
			// The flag distinguishes intentional close from real errors.
			if s.shutdown.Load() {
				return nil
			}
			return err
		}
		// Serial by construction: the accept loop does not resume until
		// this session ends, so at most one session is ever active.
		s.serveSession(conn)
	}
}

// Shutdown stops accepting connections, terminates any active session, and
// waits for the run loop to exit.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.shutdown.Store(true)
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	if s.active != nil {
		s.active.Close()
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("server: timeout waiting for active session to finish")
	}
}

func (s *Server) setActive(conn net.Conn) {
	s.mu.Lock()
	s.active = conn
	s.mu.Unlock()
}

// serveSession reads one request per iteration and replies with exactly one
// response before reading the next. Invocation failures become ERROR
// responses; malformed or undecryptable frames drop the connection with no
// partial response.
func (s *Server) serveSession(conn net.Conn) {
	defer conn.Close()
	s.setActive(conn)
	defer s.setActive(nil)

	id := ulid.Make().String()
	sc := session.Wrap(conn, s.cipher)
	s.log.Printf("session %s connected from %s", id, conn.RemoteAddr())

	for {
		payload, err := sc.ReadMessage()
		if err != nil {
			if errors.Is(err, session.ErrClosed) {
				s.log.Printf("session %s: connection closed by peer", id)
			} else {
				s.log.Printf("session %s dropped: %v", id, err)
			}
			return
		}
		req, err := message.DecodeRequest(payload)
		if err != nil {
			s.log.Printf("session %s dropped: malformed request: %v", id, err)
			return
		}

		resp := s.handler(context.Background(), req)
		out, err := message.EncodeResponse(resp)
		if err != nil {
			// The handler produced a payload the codec cannot carry.
			// Report it rather than dropping the session.
			out, err = message.EncodeResponse(message.ErrorResponse(
				"application", "result of %q is not representable: %v", req.Command, err))
			if err != nil {
				s.log.Printf("session %s dropped: %v", id, err)
				return
			}
		}
		if err := sc.WriteMessage(out); err != nil {
			s.log.Printf("session %s dropped: %v", id, err)
			return
		}
		if resp.Tag == message.TagClose {
			s.log.Printf("session %s closed", id)
			return
		}
	}
}

// dispatch resolves built-ins first, then falls back to the command table.
func (s *Server) dispatch(ctx context.Context, req *message.Request) *message.Response {
	name := strings.ToLower(req.Command)
	switch name {
	case "close":
		return &message.Response{Tag: message.TagClose}
	case "help":
		return s.help(req.Args)
	case "call":
		if len(req.Args) == 0 {
			return message.ErrorResponse("argument", "call requires a command name")
		}
		target, ok := req.Args[0].(string)
		if !ok {
			return message.ErrorResponse("argument", "call target must be a string")
		}
		return s.invoke(target, req.Args[1:], req.Kwargs)
	}
	return s.invoke(name, req.Args, req.Kwargs)
}

func (s *Server) invoke(name string, args []any, kwargs map[string]any) *message.Response {
	entry, ok := s.table.Lookup(name)
	if !ok {
		return message.ErrorResponse("command", "command %q is not registered", name)
	}
	result, err := entry.Invoke(args, kwargs)
	if err != nil {
		var verr *value.Error
		if errors.As(err, &verr) {
			return &message.Response{Tag: message.TagError, Payload: verr}
		}
		return message.ErrorResponse("application", "%s", err.Error())
	}
	if result == nil {
		return &message.Response{Tag: message.TagOK}
	}
	return &message.Response{Tag: message.TagData, Payload: result}
}

func (s *Server) help(args []any) *message.Response {
	calls, props := s.table.Partition()
	if len(args) == 0 {
		return &message.Response{Tag: message.TagHelp, Payload: map[string]any{
			"calls":      toAnySlice(calls),
			"properties": toAnySlice(props),
		}}
	}
	name, ok := args[0].(string)
	if !ok {
		return message.ErrorResponse("argument", "help takes a command name")
	}
	doc, ok := s.table.Doc(name)
	if !ok {
		return &message.Response{
			Tag:     message.TagHelp,
			Payload: fmt.Sprintf("Command %q is not registered.\nAvailable calls: %v\nAvailable properties: %v", name, calls, props),
		}
	}
	return &message.Response{Tag: message.TagHelp, Payload: doc}
}

func (s *Server) banner(l net.Listener) {
	calls, props := s.table.Partition()
	s.log.Printf("listening on %s", l.Addr())
	s.log.Printf("registered calls: %v", calls)
	if len(props) > 0 {
		s.log.Printf("registered properties: %v", props)
	}
	s.log.Printf("auxiliary calls: [call help close]")
}

// parseBindAddress maps the conventional wildcard and localhost spellings
// onto concrete bind addresses.
func parseBindAddress(address string) string {
	switch address {
	case "", "*":
		return "0.0.0.0"
	case "localhost":
		return "127.0.0.1"
	}
	return address
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
