// Package display renders trip pages into a 128x64 monochrome frame and
// pushes them to an SSD1306 OLED or a UDP JSON feed. It also owns the
// dim and off timers that save the panel while nobody looks at it.
package display
