package mqtt

import (
	"fmt"
	"net"

	"github.com/kestrelmq/broker/connbuf"
	"golang.org/x/sys/unix"
)

// rawSocket wraps a non-blocking socket file descriptor behind the
// connbuf.Reader/Writer interfaces. The broker never hands a socket to
// Go's runtime netpoller: ownership of readiness notification belongs
// entirely to package reactor, so a connection's fd is read and written
// only from callbacks the reactor invokes on its single goroutine.
type rawSocket struct {
	fd int
}

// Read implements connbuf.Reader. EAGAIN/EWOULDBLOCK (no data ready on a
// non-blocking socket) maps to connbuf.ErrWouldBlock; a 0-byte, no-error
// read means the peer closed its write side, which connbuf.Buffer.Fill
// already treats as end of stream.
func (s *rawSocket) Read(p []byte) (int, error) {
	n, err := unix.Read(s.fd, p)
	if err != nil {
		if err == unix.EAGAIN {
			return 0, connbuf.ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

// Write implements connbuf.Writer.
func (s *rawSocket) Write(p []byte) (int, error) {
	n, err := unix.Write(s.fd, p)
	if err != nil {
		if err == unix.EAGAIN {
			return n, connbuf.ErrWouldBlock
		}
		return n, err
	}
	return n, nil
}

func (s *rawSocket) Close() error {
	return unix.Close(s.fd)
}

// listenTCP resolves addr ("host:port"), then creates, binds and listens
// on a non-blocking IPv4 TCP socket directly via syscalls, bypassing
// net.Listen so the resulting fd can be armed on our own reactor instead
// of Go's internal netpoller.
func listenTCP(addr string) (int, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return -1, fmt.Errorf("resolve %s: %w", addr, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("setsockopt SO_REUSEADDR: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("set nonblocking: %w", err)
	}

	var sa unix.SockaddrInet4
	if tcpAddr.IP != nil {
		ip4 := tcpAddr.IP.To4()
		if ip4 == nil {
			unix.Close(fd)
			return -1, fmt.Errorf("listen address %s is not IPv4", addr)
		}
		copy(sa.Addr[:], ip4)
	}
	sa.Port = tcpAddr.Port

	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind %s: %w", addr, err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen %s: %w", addr, err)
	}
	return fd, nil
}

// acceptAll drains every pending connection on listenerFD (edge-triggered
// or not, a readiness event only guarantees at least one), returning
// non-blocking client fds. unix.EAGAIN ends the loop normally.
func acceptAll(listenerFD int) ([]int, error) {
	var fds []int
	for {
		nfd, _, err := unix.Accept(listenerFD)
		if err != nil {
			if err == unix.EAGAIN {
				return fds, nil
			}
			return fds, err
		}
		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			continue
		}
		fds = append(fds, nfd)
	}
}
