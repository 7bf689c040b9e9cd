package display

import (
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
)

const (
	Width      = 128
	Height     = 64
	lineHeight = 13
)

// Render draws a page into a new frame.
func Render(p Page, v View) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range Lines(p, v) {
		drawer.Dot = fixed.P(0, lineHeight*(i+1)-2)
		drawer.DrawString(line)
	}
	if p == PageSatellites {
		drawBars(img, v.Snapshot.Satellites, v.Snapshot.Fix)
	}
	return img
}

const (
	barTop    = lineHeight + 2
	barBottom = Height - 1
	barWidth  = 8
	barPitch  = 10
	maxSNR    = 99
)

// drawBars plots one bar per satellite in view, height proportional to
// its SNR. Satellites used in the fix are filled, the others outlined.
func drawBars(img *image1bit.VerticalLSB, sats []nmea.Satellite, fix nmea.RawFix) {
	inFix := make(map[uint8]bool, len(fix.FixSatellites))
	for _, id := range fix.FixSatellites {
		if id != 0 {
			inFix[id] = true
		}
	}
	for i, sat := range sats {
		x0 := i * barPitch
		if x0+barWidth > Width {
			break
		}
		snr := int(sat.SNR)
		if snr > maxSNR {
			snr = maxSNR
		}
		h := snr * (barBottom - barTop) / maxSNR
		y0 := barBottom - h
		for x := x0; x < x0+barWidth; x++ {
			for y := y0; y <= barBottom; y++ {
				edge := x == x0 || x == x0+barWidth-1 || y == y0 || y == barBottom
				if inFix[sat.ID] || edge {
					img.SetBit(x, y, image1bit.On)
				}
			}
		}
	}
}
