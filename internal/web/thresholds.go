package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/ChriR/GPS-Speedo-Logger/internal/config"
	"github.com/ChriR/GPS-Speedo-Logger/internal/trip"
)

var thresholdKeys = []string{"dop", "distance", "altitude"}

// decodeStrict decodes a JSON object that must carry exactly keys, each
// once and none null.
func decodeStrict(body []byte, keys []string, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	allowed := make(map[string]bool, len(keys))
	for _, k := range keys {
		allowed[k] = true
	}
	seen := make(map[string]bool, len(keys))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("invalid json: expected object")
	}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("invalid json: %w", err)
		}
		key, ok := kt.(string)
		if !ok {
			return errors.New("invalid json: expected string key")
		}
		if !allowed[key] {
			return fmt.Errorf("invalid json: unknown key %q", key)
		}
		if seen[key] {
			return fmt.Errorf("invalid json: duplicate key %q", key)
		}
		seen[key] = true

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("invalid json: %w", err)
		}
		if strings.TrimSpace(string(raw)) == "null" {
			return fmt.Errorf("invalid json: %q cannot be null", key)
		}
	}
	if end, err := dec.Token(); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	} else if delim, ok := end.(json.Delim); !ok || delim != '}' {
		return errors.New("invalid json: expected end of object")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid json: trailing data")
	}
	for _, k := range keys {
		if !seen[k] {
			return fmt.Errorf("invalid json: missing required key %q", k)
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// thresholdsHandler serves GET and POST /api/thresholds. A POST applies the
// new thresholds at once and, with a config path, saves them. A failed save
// restores the previous thresholds. Posts are applied one at a time so a
// rollback never overwrites a newer saved value.
func thresholdsHandler(tacho Tacho, configPath string) http.Handler {
	var applyMu sync.Mutex
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, tacho.Thresholds())
			return
		case http.MethodPost:
		default:
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if ct := strings.TrimSpace(r.Header.Get("Content-Type")); ct != "application/json" {
			http.Error(w, "content-type must be application/json", http.StatusUnsupportedMediaType)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, fmt.Sprintf("read failed: %v", err), http.StatusBadRequest)
			return
		}
		var th trip.Thresholds
		if err := decodeStrict(body, thresholdKeys, &th); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		applyMu.Lock()
		defer applyMu.Unlock()
		old := tacho.Thresholds()
		if err := tacho.SetThresholds(th); err != nil {
			http.Error(w, fmt.Sprintf("invalid thresholds: %v", err), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(configPath) != "" {
			if err := saveThresholds(configPath, th); err != nil {
				_ = tacho.SetThresholds(old)
				http.Error(w, fmt.Sprintf("save failed: %v", err), http.StatusInternalServerError)
				return
			}
		}
		writeJSON(w, tacho.Thresholds())
	})
}

func saveThresholds(path string, th trip.Thresholds) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg.Thresholds = th
	return config.Save(path, cfg)
}
