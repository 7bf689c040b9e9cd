package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
	"github.com/ChriR/GPS-Speedo-Logger/internal/replay"
)

type captureSummary struct {
	Segments    int
	Chunks      int
	Bytes       int
	MaxDuration time.Duration
	Results     map[nmea.Result]int
}

// summarizeCapture replays chunks through a fresh assembler and counts the
// outcome of every sentence.
func summarizeCapture(chunks []replay.Chunk, talker string) (captureSummary, error) {
	s := captureSummary{Results: map[nmea.Result]int{}}
	asm, err := nmea.NewAssembler(talker)
	if err != nil {
		return s, err
	}
	count := func(r nmea.Result) { s.Results[r]++ }

	origin := time.Duration(0)
	hasData := false
	started := false
	for _, c := range chunks {
		if c.Data == nil {
			s.Segments++
			origin = c.At
			continue
		}
		hasData = true
		s.Chunks++
		s.Bytes += len(c.Data)
		if at := c.At - origin; at > s.MaxDuration {
			s.MaxDuration = at
		}
		for _, b := range c.Data {
			r := asm.Feed(b)
			// The '$' opening the first sentence closes nothing.
			if b == '$' && !started {
				started = true
				continue
			}
			if r != nmea.Incomplete {
				count(r)
			}
		}
	}
	if started {
		count(asm.Feed('$'))
	}
	if s.Segments == 0 && hasData {
		s.Segments = 1
	}
	return s, nil
}

func printCaptureSummary(w io.Writer, path, talker string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	chunks, err := replay.Load(path, 100*time.Millisecond)
	if err != nil {
		return err
	}
	s, err := summarizeCapture(chunks, talker)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "chunks: %d\n", s.Chunks)
	fmt.Fprintf(w, "bytes: %d\n", s.Bytes)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)

	keys := make([]int, 0, len(s.Results))
	for k := range s.Results {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	fmt.Fprintf(w, "sentences:\n")
	for _, k := range keys {
		r := nmea.Result(k)
		fmt.Fprintf(w, "  %s: %d\n", r, s.Results[r])
	}
	return nil
}
