package gps

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"
)

func drain(src ByteSource) string {
	var sb strings.Builder
	for src.Available() {
		c, err := src.ReadByte()
		if err != nil {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func TestGPSDSource_HandleLine(t *testing.T) {
	var captured []string
	s := &GPSDSource{capture: func(_ time.Time, data []byte) { captured = append(captured, string(data)) }}

	s.handleLine(time.Now(), `{"class":"VERSION","release":"3.25"}`)
	s.handleLine(time.Now(), `{"class":"DEVICES","devices":[{"path":"/dev/ttyACM0","driver":"u-blox","bps":9600}]}`)
	s.handleLine(time.Now(), "$GPVTG,,T,,M,0.0,N,0.0,K*4E\r")
	s.handleLine(time.Now(), `{"class":"ERROR","message":"unrecognized request"}`)
	s.handleLine(time.Now(), `{broken`)

	if got := drain(&s.queue); got != "$GPVTG,,T,,M,0.0,N,0.0,K*4E\r\n" {
		t.Fatalf("forwarded %q", got)
	}
	if len(captured) != 1 {
		t.Fatalf("captured %q", captured)
	}
	if s.Device() != "/dev/ttyACM0" {
		t.Fatalf("device=%q", s.Device())
	}
	if !strings.Contains(s.LastError(), "json parse failed") {
		t.Fatalf("last error=%q", s.LastError())
	}
}

func TestGPSDSource_StreamsFromServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	watch := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		watch <- line
		_, _ = conn.Write([]byte("{\"class\":\"WATCH\",\"nmea\":true}\n$GPGGA,1\n$GPRMC,2\n"))
		time.Sleep(500 * time.Millisecond)
	}()

	src := DialGPSD(context.Background(), ln.Addr().String(), nil)
	defer src.Close()

	select {
	case got := <-watch:
		if !strings.Contains(got, `"nmea":true`) {
			t.Fatalf("watch=%q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no watch request")
	}

	var got string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(got, "$GPRMC,2") {
		got += drain(src)
		time.Sleep(10 * time.Millisecond)
	}
	if got != "$GPGGA,1\r\n$GPRMC,2\r\n" {
		t.Fatalf("stream=%q", got)
	}
}
