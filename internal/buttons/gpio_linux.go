//go:build linux

package buttons

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Config selects the chip and line offsets. Buttons pull the line low
// when pressed.
type Config struct {
	Chip      string
	Lines     [buttonCount]int
	LongPress time.Duration
	Debounce  time.Duration
}

const pollInterval = 50 * time.Millisecond

// Run watches the buttons until ctx is done.
func Run(ctx context.Context, cfg Config, actions Actions) error {
	det := NewDetector(cfg.LongPress, 0)
	byOffset := make(map[int]Button, buttonCount)
	offsets := make([]int, 0, buttonCount)
	for b, off := range cfg.Lines {
		byOffset[off] = Button(b)
		offsets = append(offsets, off)
	}

	events := make(chan Event, 8)
	handler := func(evt gpiocdev.LineEvent) {
		b, ok := byOffset[evt.Offset]
		if !ok {
			return
		}
		if ev, ok := det.Edge(b, evt.Type == gpiocdev.LineEventFallingEdge, time.Now()); ok {
			select {
			case events <- ev:
			default:
			}
		}
	}

	chip, err := gpiocdev.NewChip(cfg.Chip, gpiocdev.WithConsumer("gpstacho-buttons"))
	if err != nil {
		return fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}
	defer chip.Close()

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(handler),
	}
	if cfg.Debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(cfg.Debounce))
	}
	lines, err := chip.RequestLines(offsets, opts...)
	if err != nil {
		return fmt.Errorf("request gpio lines %v: %w", offsets, err)
	}
	defer lines.Close()
	log.Printf("buttons: watching chip=%s lines=%v", cfg.Chip, offsets)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			actions.Dispatch(ev)
		case now := <-ticker.C:
			for _, ev := range det.Poll(now) {
				actions.Dispatch(ev)
			}
		}
	}
}
