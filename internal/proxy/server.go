package proxy

import (
	"net"

	"github.com/seiftnesse/mc-lazyproxy/internal/logger"
)

// Server accepts TCP connections on a listen address and dispatches
// each to a Handler running in its own goroutine.
type Server struct {
	listener net.Listener
	handler  *Handler
	log      *logger.Logger
}

// Listen binds listenAddr and returns a Server ready to Serve.
func Listen(listenAddr string, handler *Handler, log *logger.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}
	return &Server{listener: listener, handler: handler, log: log}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections forever, handing each to the handler on its
// own goroutine. It returns only when Accept itself fails, which is
// treated as fatal.
func (s *Server) Serve() error {
	s.log.Info("accepting TCP connections on %s", s.listener.Addr())

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handler.Handle(conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}
