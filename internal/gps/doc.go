// Package gps runs the receiver side of the tacho: it pulls raw bytes from a
// serial port, a gpsd NMEA stream or a capture replay, feeds them through the
// sentence assembler and the trip accumulator on one goroutine, and publishes
// immutable snapshots for the display, logger, web and MQTT consumers.
package gps
