package netcode

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

var (
	// ErrClosed is returned when sending on a closed transport.
	ErrClosed = errors.New("netcode: transport closed")
	// ErrNoPeer is returned when a listening transport has not heard from anyone yet.
	ErrNoPeer = errors.New("netcode: no peer address yet")
)

// Transport moves whole datagrams between two peers. Delivery may drop,
// duplicate or reorder frames.
type Transport interface {
	Send(frame []byte) error
	// Recv yields received frames; it is closed when the transport closes.
	Recv() <-chan []byte
	Close() error
}

const recvQueueSize = 512

// UDPTransport is a Transport over a UDP socket. A listening transport
// adopts the address of the first datagram it receives as its peer.
type UDPTransport struct {
	conn   *net.UDPConn
	dialed bool

	mu     sync.Mutex
	remote *net.UDPAddr

	recv    chan []byte
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// ListenUDP opens a host-side transport on addr (e.g. ":23456").
func ListenUDP(addr string) (*UDPTransport, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("netcode: cannot resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("netcode: cannot listen on %s: %w", addr, err)
	}
	return startUDP(conn, false), nil
}

// DialUDP opens a joiner-side transport to the host at addr.
func DialUDP(addr string) (*UDPTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("netcode: cannot resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("netcode: cannot dial %s: %w", addr, err)
	}
	t := startUDP(conn, true)
	t.remote = raddr
	return t, nil
}

func startUDP(conn *net.UDPConn, dialed bool) *UDPTransport {
	t := &UDPTransport{
		conn:   conn,
		dialed: dialed,
		recv:   make(chan []byte, recvQueueSize),
		stopCh: make(chan struct{}),
	}
	t.running.Store(true)
	t.wg.Add(1)
	go t.readLoop()
	return t
}

// LocalAddr returns the bound socket address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// RemoteAddr returns the peer address, or nil if none is known yet.
func (t *UDPTransport) RemoteAddr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remote == nil {
		return nil
	}
	return t.remote
}

func (t *UDPTransport) readLoop() {
	defer t.wg.Done()
	defer close(t.recv)

	buf := make([]byte, 64*1024)
	for {
		n, from, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-t.stopCh:
				return
			default:
				// ICMP errors on a connected socket surface here; keep reading.
				if errors.Is(err, net.ErrClosed) {
					return
				}
				continue
			}
		}
		if !t.dialed && !t.accept(from) {
			continue
		}
		frame := make([]byte, n)
		copy(frame, buf[:n])
		select {
		case t.recv <- frame:
		default:
			// Queue full: drop, the protocol tolerates loss.
		}
	}
}

// accept pins the first sender as the peer and filters everyone else.
func (t *UDPTransport) accept(from *net.UDPAddr) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remote == nil {
		t.remote = from
		return true
	}
	return t.remote.IP.Equal(from.IP) && t.remote.Port == from.Port
}

// Send writes one datagram to the peer.
func (t *UDPTransport) Send(frame []byte) error {
	if !t.running.Load() {
		return ErrClosed
	}
	if t.dialed {
		_, err := t.conn.Write(frame)
		return err
	}
	t.mu.Lock()
	remote := t.remote
	t.mu.Unlock()
	if remote == nil {
		return ErrNoPeer
	}
	_, err := t.conn.WriteToUDP(frame, remote)
	return err
}

// Recv returns the inbound frame queue.
func (t *UDPTransport) Recv() <-chan []byte {
	return t.recv
}

// Close stops the reader and releases the socket.
func (t *UDPTransport) Close() error {
	if !t.running.CompareAndSwap(true, false) {
		return nil
	}
	close(t.stopCh)
	err := t.conn.Close()
	t.wg.Wait()
	return err
}
