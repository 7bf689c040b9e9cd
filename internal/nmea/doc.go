// Package nmea decodes the NMEA-0183 byte stream of a serial GNSS receiver.
//
// Input is consumed one byte at a time by Assembler.Feed so the caller can
// drain a non-blocking byte source from a periodic tick without ever waiting
// for more data. Five sentence kinds are understood (GGA, GSA, GSV, RMC and
// VTG); their fields are folded into a RawFix using integer fixed-point
// parsers. Checksums are not verified.
//
// An Assembler is owned by a single goroutine. Other goroutines should only
// ever see the RawFix copies returned by Assembler.Fix.
package nmea
