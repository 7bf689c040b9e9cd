package gps

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

const gpsdDefaultAddr = "127.0.0.1:2947"

// dialGPSD connects to gpsd over TCP.
func dialGPSD(ctx context.Context, addr string) (net.Conn, error) {
	if strings.TrimSpace(addr) == "" {
		addr = gpsdDefaultAddr
	}
	d := &net.Dialer{Timeout: 2 * time.Second}
	return d.DialContext(ctx, "tcp", addr)
}

// gpsdWatch asks gpsd to pass the receiver's NMEA through unchanged.
func gpsdWatch(conn net.Conn) error {
	_, err := conn.Write([]byte("?WATCH={\"enable\":true,\"nmea\":true}\n"))
	return err
}

type gpsdMsgBase struct {
	Class string `json:"class"`
}

type gpsdDevices struct {
	Devices []struct {
		Path   string `json:"path"`
		Driver string `json:"driver"`
		Bps    int    `json:"bps"`
	} `json:"devices"`
}

type gpsdError struct {
	Message string `json:"message"`
}

// GPSDSource streams NMEA sentences relayed by gpsd and reconnects with
// backoff when the connection drops.
type GPSDSource struct {
	queue
	addr    string
	capture CaptureFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	conn    net.Conn
	device  string
	lastErr string
}

// DialGPSD starts streaming from gpsd at addr. The returned source never
// reports a terminal error; connection failures are retried until Close.
func DialGPSD(ctx context.Context, addr string, capture CaptureFunc) *GPSDSource {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = gpsdDefaultAddr
	}
	childCtx, cancel := context.WithCancel(ctx)
	s := &GPSDSource{addr: addr, capture: capture, cancel: cancel}
	s.wg.Add(1)
	go s.run(childCtx)
	return s
}

func (s *GPSDSource) run(ctx context.Context) {
	defer s.wg.Done()
	log.Printf("tacho: gpsd source addr=%s", s.addr)

	const minBackoff = 250 * time.Millisecond
	const maxBackoff = 10 * time.Second
	backoff := minBackoff

	for ctx.Err() == nil {
		conn, err := dialGPSD(ctx, s.addr)
		if err != nil {
			s.setError(fmt.Sprintf("gpsd dial failed addr=%s: %v", s.addr, err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}
			continue
		}
		backoff = minBackoff

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		if err := s.stream(ctx, conn); err != nil && ctx.Err() == nil {
			s.setError(err.Error())
		}
		_ = conn.Close()

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}
}

func (s *GPSDSource) stream(ctx context.Context, conn net.Conn) error {
	if err := gpsdWatch(conn); err != nil {
		return fmt.Errorf("gpsd watch failed: %w", err)
	}
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), 256*1024)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		s.handleLine(time.Now(), sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("gpsd read stopped: %w", err)
	}
	return fmt.Errorf("gpsd read stopped: connection closed")
}

// handleLine forwards NMEA sentences and consumes gpsd's own JSON reports.
func (s *GPSDSource) handleLine(now time.Time, line string) {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "$"):
		data := []byte(line + "\r\n")
		if s.capture != nil {
			s.capture(now, data)
		}
		s.push(data)
	case strings.HasPrefix(line, "{"):
		var base gpsdMsgBase
		if err := json.Unmarshal([]byte(line), &base); err != nil {
			s.setError(fmt.Sprintf("gpsd json parse failed: %v", err))
			return
		}
		switch strings.ToUpper(base.Class) {
		case "DEVICES":
			var d gpsdDevices
			if err := json.Unmarshal([]byte(line), &d); err == nil && len(d.Devices) > 0 {
				s.mu.Lock()
				s.device = d.Devices[0].Path
				s.mu.Unlock()
				log.Printf("tacho: gpsd device path=%s driver=%s bps=%d", d.Devices[0].Path, d.Devices[0].Driver, d.Devices[0].Bps)
			}
		case "ERROR":
			var e gpsdError
			if err := json.Unmarshal([]byte(line), &e); err == nil {
				s.setError("gpsd: " + e.Message)
			}
		}
	}
}

func (s *GPSDSource) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = msg
}

// LastError returns the most recent connection or protocol error.
func (s *GPSDSource) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Device returns the receiver path reported by gpsd, if any.
func (s *GPSDSource) Device() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// Close stops reconnecting and closes the active connection.
func (s *GPSDSource) Close() error {
	s.cancel()
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}
