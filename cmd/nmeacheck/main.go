// Command nmeacheck decodes a receiver capture or NMEA text log with the
// tacho's decoder and with github.com/adrianmo/go-nmea and reports every
// field they read differently.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/ChriR/GPS-Speedo-Logger/internal/crosscheck"
	"github.com/ChriR/GPS-Speedo-Logger/internal/replay"
)

var errMismatch = errors.New("decoders disagree")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errMismatch) {
			os.Exit(1)
		}
		log.Fatalf("nmeacheck: %v", err)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("nmeacheck", flag.ContinueOnError)
	in := fs.String("in", "", "Capture or NMEA text log to check")
	talker := fs.String("talker", "GP", "Accepted talker ID")
	gap := fs.Duration("gap", 100*time.Millisecond, "Line spacing assumed for plain text logs")
	legacy := fs.Bool("legacy-distance", false, "Accumulate distance like the SD-card firmware")
	max := fs.Int("max", 50, "Maximum mismatches to report (0 = all)")
	asJSON := fs.Bool("json", false, "Print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return fmt.Errorf("-in is required")
	}

	chunks, err := replay.Load(*in, *gap)
	if err != nil {
		return err
	}
	c, err := crosscheck.New(crosscheck.Options{Talker: *talker, LegacyDistance: *legacy, MaxMismatches: *max})
	if err != nil {
		return err
	}
	for _, ch := range chunks {
		c.Write(ch.Data)
	}
	rep := c.Report()

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		printReport(out, *in, rep)
	}
	if len(rep.Mismatches) > 0 {
		return errMismatch
	}
	return nil
}

func printReport(w io.Writer, path string, rep crosscheck.Report) {
	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "sentences: %d\n", rep.Sentences)
	fmt.Fprintf(w, "compared: %d\n", rep.Compared)
	fmt.Fprintf(w, "unrecognized: %d\n", rep.Unrecognized)
	fmt.Fprintf(w, "reference_errors: %d\n", rep.RefErrors)
	fmt.Fprintf(w, "distance_m: %.1f\n", float64(rep.Distance)/10)
	fmt.Fprintf(w, "great_circle_m: %.1f\n", rep.GreatCircle)
	fmt.Fprintf(w, "distance_error: %.3f%%\n", rep.DistanceError()*100)
	fmt.Fprintf(w, "mismatches: %d\n", len(rep.Mismatches))
	for _, m := range rep.Mismatches {
		fmt.Fprintf(w, "  line %d %s: ours=%s reference=%s\n    %s\n", m.Line, m.Field, m.Ours, m.Reference, m.Sentence)
	}
}
