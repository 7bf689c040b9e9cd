package display

import (
	"encoding/json"
	"fmt"
	"net"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)

type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// UDPFeed sends every frame as a JSON datagram for a remote display.
type UDPFeed struct {
	dest string
	conn udpConn
}

func NewUDPFeed(dest string) (*UDPFeed, error) {
	return newUDPFeed(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newUDPFeed(dest string, resolve resolveFunc, dial dialFunc) (*UDPFeed, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}
	return &UDPFeed{dest: dest, conn: conn}, nil
}

type udpFrame struct {
	Frame
	// Pix is the 1-bit frame in SSD1306 page order.
	Pix []byte `json:"pix,omitempty"`
}

func (u *UDPFeed) Show(f Frame) error {
	msg := udpFrame{Frame: f}
	if f.Image != nil {
		msg.Pix = f.Image.Pix
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	_, err = u.conn.Write(payload)
	return err
}

// SetMode sends a frame carrying only the new mode, so a receiver can
// blank itself when the panel is off.
func (u *UDPFeed) SetMode(m Mode) error {
	payload, err := json.Marshal(struct {
		Mode Mode `json:"mode"`
	}{m})
	if err != nil {
		return err
	}
	_, err = u.conn.Write(payload)
	return err
}

func (u *UDPFeed) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
