//go:build !linux

package buttons

import (
	"context"
	"errors"
	"time"
)

type Config struct {
	Chip      string
	Lines     [buttonCount]int
	LongPress time.Duration
	Debounce  time.Duration
}

func Run(ctx context.Context, cfg Config, actions Actions) error {
	return errors.New("buttons: gpio is only supported on linux")
}
