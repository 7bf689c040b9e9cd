package tracklog

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
)

// Header is the first line of track and event files.
var Header = []string{"DATE", "TIME", "LATITUDE", "N/S", "LONGITUDE", "E/W", "ALT", "HEIGHT", "SPEED", "DISTANCE", "SATS", "PDOP", "FIX", "DEBUG"}

// csvFile is a buffered CRLF CSV file.
type csvFile struct {
	path string
	f    *os.File
	buf  *bufio.Writer
	csv  *csv.Writer
	rows uint64
}

func createCSV(path string) (*csvFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv create %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, 16*1024)
	cw := csv.NewWriter(bw)
	cw.UseCRLF = true
	if err := cw.Write(Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv write header: %w", err)
	}
	return &csvFile{path: path, f: f, buf: bw, csv: cw}, nil
}

func (c *csvFile) write(row []string) error {
	if err := c.csv.Write(row); err != nil {
		return err
	}
	c.rows++
	return nil
}

// flush pushes buffered rows to the OS so a power cut loses little.
func (c *csvFile) flush() error {
	c.csv.Flush()
	if err := c.csv.Error(); err != nil {
		return err
	}
	return c.buf.Flush()
}

// close writes the trailing empty line and closes the file.
func (c *csvFile) close() error {
	c.csv.Flush()
	_, _ = c.buf.WriteString("\r\n")
	if err := c.buf.Flush(); err != nil {
		_ = c.f.Close()
		return err
	}
	return c.f.Close()
}
