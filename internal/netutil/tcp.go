// Package netutil applies TCP socket tuning to connections being
// forwarded to a backend. Locally-terminated status/login connections
// are left at their defaults.
package netutil

import (
	"net"
	"time"
)

const (
	keepAlivePeriod = 30 * time.Second
	socketBufSize   = 512 * 1024
)

// TuneForForwarding disables Nagle's algorithm, enables TCP keep-alive,
// and grows the socket buffers on conn, if it is a TCP connection.
func TuneForForwarding(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	if err := tcpConn.SetNoDelay(true); err != nil {
		return err
	}
	if err := tcpConn.SetKeepAlive(true); err != nil {
		return err
	}
	if err := tcpConn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
		return err
	}
	if err := tcpConn.SetReadBuffer(socketBufSize); err != nil {
		return err
	}
	if err := tcpConn.SetWriteBuffer(socketBufSize); err != nil {
		return err
	}

	return nil
}
