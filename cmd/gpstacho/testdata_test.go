package main

import (
	"fmt"
	"strings"
)

func sentence(body string) string {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X\r\n", body, cs)
}

// drive returns n one-second epochs moving north by about 50 m each.
func drive(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		clock := fmt.Sprintf("10%02d%02d.00", i/60, i%60)
		lat := fmt.Sprintf("48%02d.%03d", 7+(38+27*i)/1000, (38+27*i)%1000)
		b.WriteString(sentence("GPRMC," + clock + ",A," + lat + ",N,01131.000,E,027.0,000.0,191026,,"))
		b.WriteString(sentence("GPGGA," + clock + "," + lat + ",N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"))
		b.WriteString(sentence("GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1"))
		b.WriteString(sentence("GPGSV,1,1,03,04,45,120,40,05,30,200,35,09,10,010,"))
		b.WriteString(sentence("GPVTG,000.0,T,000.0,M,027.0,N,050.0,K"))
	}
	return b.String()
}
