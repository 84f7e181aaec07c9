package transport

import (
	"io"
	"net"
	"time"
)

// WSConn is the slice of a websocket connection the frame layer needs. Both
// the fasthttp/websocket client conn and the gofiber contrib server conn
// satisfy it, so the relay and the client share one adapter.
type WSConn interface {
	NextReader() (int, io.Reader, error)
	NextWriter(int) (io.WriteCloser, error)
	Close() error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// binaryMessage mirrors websocket.BinaryMessage without importing either
// websocket package here.
const binaryMessage = 2

type netConn struct {
	ws WSConn
	r  io.Reader
}

// NetConn adapts a websocket connection to net.Conn so a stream-oriented
// frame codec can run on top of it. Each Write emits one binary websocket
// message; Read drains messages in order.
func NetConn(ws WSConn) net.Conn {
	return &netConn{ws: ws}
}

func (c *netConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				return 0, err
			}
			c.r = r
		}
		n, err := c.r.Read(p)
		if err == io.EOF {
			c.r = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (c *netConn) Write(p []byte) (int, error) {
	w, err := c.ws.NextWriter(binaryMessage)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(p)
	if err != nil {
		w.Close()
		return n, err
	}
	return n, w.Close()
}

func (c *netConn) Close() error         { return c.ws.Close() }
func (c *netConn) LocalAddr() net.Addr  { return c.ws.LocalAddr() }
func (c *netConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *netConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

func (c *netConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *netConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
