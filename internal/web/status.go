package web

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/ChriR/GPS-Speedo-Logger/internal/gps"
	"github.com/ChriR/GPS-Speedo-Logger/internal/nmea"
	"github.com/ChriR/GPS-Speedo-Logger/internal/tracklog"
)

type StatusResponse struct {
	Service   string           `json:"service"`
	NowUTC    string           `json:"now_utc"`
	UptimeSec int64            `json:"uptime_sec"`
	GPS       gps.Status       `json:"gps"`
	Record    *tracklog.Status `json:"record,omitempty"`
	Stopwatch *StopwatchState  `json:"stopwatch,omitempty"`
	Disk      *DiskSnapshot    `json:"disk,omitempty"`
}

type StopwatchState struct {
	Running    bool    `json:"running"`
	ElapsedSec float64 `json:"elapsed_sec"`
}

type SatellitesResponse struct {
	InView     uint8            `json:"in_view"`
	InFix      uint8            `json:"in_fix"`
	Satellites []nmea.Satellite `json:"satellites"`
}

// DiskSnapshot is the space left for track logs.
type DiskSnapshot struct {
	Path       string `json:"path"`
	TotalBytes uint64 `json:"total_bytes,omitempty"`
	AvailBytes uint64 `json:"avail_bytes,omitempty"`
	LastError  string `json:"last_error,omitempty"`
}

func stopwatchState(sw Stopwatch) *StopwatchState {
	return &StopwatchState{Running: sw.Running(), ElapsedSec: sw.Elapsed().Seconds()}
}

func buildStatus(opts Options, started, nowUTC time.Time) StatusResponse {
	resp := StatusResponse{
		Service:   "gpstacho",
		NowUTC:    nowUTC.Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(started).Seconds()),
		GPS:       opts.Tacho.Snapshot().Status,
	}
	if opts.Recorder != nil {
		st := opts.Recorder.Status()
		resp.Record = &st
	}
	if opts.Stopwatch != nil {
		resp.Stopwatch = stopwatchState(opts.Stopwatch)
	}
	if opts.LogDir != "" {
		resp.Disk = snapshotDisk(opts.LogDir)
	}
	return resp
}

type AboutResponse struct {
	Service    string `json:"service"`
	NowUTC     string `json:"now_utc"`
	GoVersion  string `json:"go_version"`
	ModulePath string `json:"module_path,omitempty"`
	Version    string `json:"version,omitempty"`
	Commit     string `json:"commit,omitempty"`
	Dirty      bool   `json:"dirty,omitempty"`
}

func about(nowUTC time.Time) AboutResponse {
	resp := AboutResponse{
		Service:   "gpstacho",
		NowUTC:    nowUTC.Format(time.RFC3339Nano),
		GoVersion: runtime.Version(),
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return resp
	}
	resp.ModulePath = bi.Main.Path
	resp.Version = bi.Main.Version
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			resp.Commit = s.Value
		case "vcs.modified":
			resp.Dirty = s.Value == "true"
		}
	}
	return resp
}
