package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ChriR/GPS-Speedo-Logger/internal/buttons"
	"github.com/ChriR/GPS-Speedo-Logger/internal/config"
	"github.com/ChriR/GPS-Speedo-Logger/internal/display"
	"github.com/ChriR/GPS-Speedo-Logger/internal/gps"
	"github.com/ChriR/GPS-Speedo-Logger/internal/publish"
	"github.com/ChriR/GPS-Speedo-Logger/internal/replay"
	"github.com/ChriR/GPS-Speedo-Logger/internal/tracklog"
	"github.com/ChriR/GPS-Speedo-Logger/internal/trip"
	"github.com/ChriR/GPS-Speedo-Logger/internal/web"
)

// tachoRuntime owns every running component. Optional outputs that fail to
// start are logged and left out so the tacho keeps logging.
type tachoRuntime struct {
	cfg      config.Config
	savePath string
	logs     *web.LogBuffer

	gpsSvc    *gps.Service
	capture   *replay.Writer
	stopwatch *trip.Stopwatch
	recorder  *tracklog.Recorder
	display   *display.Display
	publisher *publish.Publisher

	cancel context.CancelFunc
	unsubs []func()
	wg     sync.WaitGroup
}

func newRuntime(ctx context.Context, cfg config.Config, savePath string, logs *web.LogBuffer) (*tachoRuntime, error) {
	c := cfg
	if err := config.DefaultAndValidate(&c); err != nil {
		return nil, err
	}
	childCtx, cancel := context.WithCancel(ctx)
	r := &tachoRuntime{
		cfg:       c,
		savePath:  savePath,
		logs:      logs,
		stopwatch: trip.NewStopwatch(time.Now),
		cancel:    cancel,
	}

	src, label, err := r.openSource(childCtx)
	if err != nil {
		r.Close()
		return nil, err
	}
	svc, err := gps.New(gps.Config{
		Source:         label,
		Talker:         c.GPS.Talker,
		Tick:           c.GPS.Tick,
		StaleAfter:     c.GPS.StaleAfter,
		Thresholds:     c.Thresholds,
		LegacyDistance: c.GPS.LegacyDistance,
	}, src)
	if err != nil {
		if closer, ok := src.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		r.Close()
		return nil, err
	}
	r.gpsSvc = svc

	if c.Log.Enable {
		r.recorder = tracklog.New(tracklog.Config{
			Dir:       c.Log.Dir,
			Interval:  c.Log.Interval,
			AutoStart: c.Log.AutoStart,
			Debug:     c.Log.Debug,
		})
		r.consume(childCtx, r.recorder.Run)
	}

	if c.Display.Enable {
		if sink, err := openDisplaySink(c.Display); err != nil {
			log.Printf("display init failed: %v", err)
		} else {
			r.display = display.New(display.Config{
				Interval: c.Display.Interval,
				DimAfter: c.Display.DimAfter,
				OffAfter: c.Display.OffAfter,
			}, sink, r.indicators)
			r.consume(childCtx, r.display.Run)
		}
	}

	if c.MQTT.Enable {
		p, err := publish.Connect(publish.Config{
			Broker:      c.MQTT.Broker,
			ClientID:    c.MQTT.ClientID,
			TopicPrefix: c.MQTT.TopicPrefix,
		})
		if err != nil {
			log.Printf("mqtt init failed: %v", err)
		} else {
			r.publisher = p
			r.consume(childCtx, p.Run)
		}
	}

	if c.Buttons.Enable {
		var bc buttons.Config
		bc.Chip = c.Buttons.Chip
		bc.LongPress = c.Buttons.LongPress
		bc.Debounce = c.Buttons.Debounce
		bc.Lines[buttons.Stopwatch] = c.Buttons.Lines.Stopwatch
		bc.Lines[buttons.Record] = c.Buttons.Lines.Record
		bc.Lines[buttons.Page] = c.Buttons.Lines.Page
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := buttons.Run(childCtx, bc, r.actions()); err != nil && childCtx.Err() == nil {
				log.Printf("buttons stopped: %v", err)
			}
		}()
	}

	if err := svc.Start(childCtx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// openSource opens the configured receiver intake and, for live sources,
// the capture file that records it.
func (r *tachoRuntime) openSource(ctx context.Context) (gps.ByteSource, string, error) {
	g := r.cfg.GPS
	var capture gps.CaptureFunc
	if g.Record.Enable {
		w, err := replay.CreateWriter(g.Record.Path)
		if err != nil {
			return nil, "", fmt.Errorf("gps capture: %w", err)
		}
		r.capture = w
		var once sync.Once
		capture = func(now time.Time, data []byte) {
			if err := w.WriteChunk(now, data); err != nil {
				once.Do(func() { log.Printf("gps capture write failed: %v", err) })
			}
		}
		log.Printf("gps capture path=%s", g.Record.Path)
	}

	switch g.Source {
	case "gpsd":
		return gps.DialGPSD(ctx, g.GPSDAddr, capture), "gpsd " + g.GPSDAddr, nil
	case "replay":
		src, err := gps.OpenReplay(ctx, gps.ReplayConfig{Path: g.Replay.Path, Speed: g.Replay.Speed, Loop: g.Replay.Loop}, nil)
		if err != nil {
			return nil, "", err
		}
		return src, "replay " + g.Replay.Path, nil
	default:
		src, dev, err := gps.OpenSerial(g.Device, g.Baud, capture)
		if err != nil {
			return nil, "", err
		}
		return src, "nmea " + dev, nil
	}
}

func openDisplaySink(c config.DisplayConfig) (display.Sink, error) {
	if c.Driver == "udp" {
		return display.NewUDPFeed(c.UDPDest)
	}
	return display.OpenOLED(c.I2CBus)
}

// consume runs fn with its own subscription until the runtime closes.
func (r *tachoRuntime) consume(ctx context.Context, fn func(context.Context, <-chan gps.Snapshot)) {
	ch, unsub := r.gpsSvc.Subscribe()
	r.unsubs = append(r.unsubs, unsub)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn(ctx, ch)
	}()
}

func (r *tachoRuntime) indicators() display.Indicators {
	ind := display.Indicators{
		Stopwatch:        r.stopwatch.Elapsed(),
		StopwatchRunning: r.stopwatch.Running(),
	}
	if r.recorder != nil {
		ind.Recording = r.recorder.Status().Recording
	}
	return ind
}

func (r *tachoRuntime) actions() buttons.Actions {
	a := buttons.Actions{
		ToggleStopwatch: r.stopwatch.Toggle,
		ResetStopwatch:  r.stopwatch.Reset,
		ResetTrip:       r.gpsSvc.ResetTrip,
	}
	if r.recorder != nil {
		a.Mark = r.recorder.Mark
		a.ToggleRecording = r.recorder.Toggle
	}
	if r.display != nil {
		a.Wake = r.display.Wake
		a.NextPage = func() { r.display.NextPage() }
	}
	return a
}

func (r *tachoRuntime) webOptions() web.Options {
	opts := web.Options{
		Tacho:      r.gpsSvc,
		Stopwatch:  r.stopwatch,
		Logs:       r.logs,
		ConfigPath: r.savePath,
		LogDir:     r.cfg.Log.Dir,
	}
	// A nil *tracklog.Recorder must not become a non-nil interface.
	if r.recorder != nil {
		opts.Recorder = r.recorder
	}
	return opts
}

// Close stops the consumers first so the track log is closed with the
// last snapshot it saw, then the receiver.
func (r *tachoRuntime) Close() {
	if r == nil {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
	if r.gpsSvc != nil {
		r.gpsSvc.Close()
		r.gpsSvc = nil
	}
	if r.capture != nil {
		if err := r.capture.Close(); err != nil {
			log.Printf("gps capture close failed: %v", err)
		}
		r.capture = nil
	}
}
