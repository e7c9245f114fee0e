package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/JakeFAU/crawler-console/internal/crawler"
	"github.com/JakeFAU/crawler-console/internal/progress"
)

var (
	// ErrMalformed wraps every decode failure of a push frame.
	ErrMalformed = errors.New("malformed push frame")
	// ErrNotTaskEvent marks well-formed frames that carry no task event,
	// such as the greeting the server sends after the handshake.
	ErrNotTaskEvent = errors.New("not a task event")
)

// Frame types that are recognised but carry no task event.
var controlFrames = map[string]bool{
	"connected": true,
	"pong":      true,
	"heartbeat": true,
}

type frame struct {
	Type      string          `json:"type"`
	TaskID    string          `json:"taskId"`
	Timestamp json.RawMessage `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type eventData struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`

	Current    *int     `json:"current"`
	Total      *int     `json:"total"`
	Percentage *float64 `json:"percentage"`
	Progress   *float64 `json:"progress"`
	Speed      *float64 `json:"speed"`
	ETA        *float64 `json:"eta"`

	ItemsCollected *int `json:"itemsCollected"`

	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Error     string          `json:"error"`
	ErrorCode string          `json:"errorCode"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// DecodeEvent validates a push frame and converts it into a task event.
// Frames without a taskId inherit connTaskID, the task of a per-task
// connection. Frames without a timestamp are stamped with now.
func DecodeEvent(raw []byte, connTaskID string, now time.Time) (progress.Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return progress.Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if controlFrames[f.Type] {
		return progress.Event{}, ErrNotTaskEvent
	}
	typ := progress.Type(f.Type)
	if !typ.Valid() {
		return progress.Event{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, f.Type)
	}

	var d eventData
	if len(bytes.TrimSpace(f.Data)) > 0 && !bytes.Equal(bytes.TrimSpace(f.Data), []byte("null")) {
		if err := json.Unmarshal(f.Data, &d); err != nil {
			return progress.Event{}, fmt.Errorf("%w: data: %v", ErrMalformed, err)
		}
	}

	ts, err := parseTimestamp(f.Timestamp)
	if err != nil {
		return progress.Event{}, fmt.Errorf("%w: timestamp: %v", ErrMalformed, err)
	}
	if ts.IsZero() {
		ts = now
	}

	evt := progress.Event{Type: typ, TaskID: firstNonEmpty(f.TaskID, d.TaskID, connTaskID), TS: ts}
	if d.ItemsCollected != nil {
		evt.ItemsCollected = *d.ItemsCollected
	}

	switch typ {
	case progress.TypeStarted:
		evt.Status = crawler.StatusRunning
	case progress.TypeCompleted:
		evt.Status = crawler.StatusCompleted
		if crawler.TaskStatus(d.Status) == crawler.StatusCancelled {
			evt.Status = crawler.StatusCancelled
		}
	case progress.TypeError:
		evt.Status = crawler.StatusFailed
		evt.Message = firstNonEmpty(d.Message, d.Error, d.ErrorCode)
	case progress.TypeProgress:
		p, err := decodeProgress(d)
		if err != nil {
			return progress.Event{}, err
		}
		evt.Progress = &p
	case progress.TypeLog:
		logTS, err := parseTimestamp(d.Timestamp)
		if err != nil || logTS.IsZero() {
			logTS = ts
		}
		level := crawler.LogLevel(d.Level)
		if level == "" {
			level = crawler.LogInfo
		}
		evt.Log = &crawler.TaskLog{Timestamp: logTS, Level: level, Message: d.Message}
	}

	if err := evt.Validate(); err != nil {
		return progress.Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return evt, nil
}

// decodeProgress accepts both the counter shape {current,total,...} and the
// percent shape {progress,itemsCollected,...}.
func decodeProgress(d eventData) (crawler.Progress, error) {
	var p crawler.Progress
	switch {
	case d.Current != nil || d.Total != nil:
		if d.Current != nil {
			p.Current = *d.Current
		}
		if d.Total != nil {
			p.Total = *d.Total
		}
		p = p.Normalize()
	case d.Progress != nil || d.Percentage != nil:
		pct := d.Progress
		if pct == nil {
			pct = d.Percentage
		}
		if math.IsNaN(*pct) {
			return p, fmt.Errorf("%w: progress is not a number", ErrMalformed)
		}
		// A bare percentage is expressed on a 0..100 scale so the
		// counters and the derived percentage agree.
		p = crawler.NewProgress(clampPercent(*pct), 100)
	default:
		return p, fmt.Errorf("%w: progress event carries no counters", ErrMalformed)
	}
	p.Speed = d.Speed
	p.ETA = d.ETA
	return p, nil
}

func clampPercent(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return int(math.Round(v))
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp accepts RFC 3339 strings, zone-less ISO strings (read as
// UTC) and unix milliseconds. A missing value yields the zero time.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] != '"' {
		ms, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(int64(ms)).UTC(), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, err
	}
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
