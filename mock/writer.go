// Package mock provides a dns.ResponseWriter for tests and internal queries.
package mock

import (
	"net"

	"github.com/miekg/dns"
)

// Writer captures the response instead of sending it. Only udp and tcp
// exist here, the listeners never hand a mock another transport.
type Writer struct {
	msg *dns.Msg

	proto string

	localAddr  net.Addr
	remoteAddr net.Addr
}

// NewWriter returns a writer pretending a client at addr over proto.
func NewWriter(proto, addr string) *Writer {
	w := &Writer{proto: proto}

	switch proto {
	case "tcp":
		w.localAddr = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 53}
		w.remoteAddr, _ = net.ResolveTCPAddr("tcp", addr)

	case "udp":
		w.localAddr = &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 53}
		w.remoteAddr, _ = net.ResolveUDPAddr("udp", addr)
	}

	return w
}

// Msg returns the captured message, nil until something was written.
func (w *Writer) Msg() *dns.Msg { return w.msg }

// Rcode returns the captured response code.
func (w *Writer) Rcode() int {
	if w.msg == nil {
		return dns.RcodeServerFailure
	}

	return w.msg.Rcode
}

// Written reports whether a response was captured.
func (w *Writer) Written() bool { return w.msg != nil }

// Write implements dns.ResponseWriter.
func (w *Writer) Write(b []byte) (int, error) {
	w.msg = new(dns.Msg)
	if err := w.msg.Unpack(b); err != nil {
		w.msg = nil
		return 0, err
	}

	return len(b), nil
}

// WriteMsg implements dns.ResponseWriter.
func (w *Writer) WriteMsg(msg *dns.Msg) error {
	w.msg = msg
	return nil
}

// Proto returns the transport given to NewWriter.
func (w *Writer) Proto() string { return w.proto }

// LocalAddr implements dns.ResponseWriter.
func (w *Writer) LocalAddr() net.Addr { return w.localAddr }

// RemoteAddr implements dns.ResponseWriter.
func (w *Writer) RemoteAddr() net.Addr { return w.remoteAddr }

// Close implements dns.ResponseWriter.
func (w *Writer) Close() error { return nil }

// Hijack implements dns.ResponseWriter.
func (w *Writer) Hijack() {}

// TsigStatus implements dns.ResponseWriter.
func (w *Writer) TsigStatus() error { return nil }

// TsigTimersOnly implements dns.ResponseWriter.
func (w *Writer) TsigTimersOnly(bool) {}
