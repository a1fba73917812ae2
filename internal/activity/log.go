package activity

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Entry represents a single activity log entry.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Source    string    `json:"source,omitempty"`
	Details   string    `json:"details,omitempty"`
	Frames    int       `json:"frames,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Cached    bool      `json:"cached,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
}

func logPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "orbit", "activity.jsonl")
}

// Log appends an entry to the activity log.
func Log(action, source, details string) error {
	return appendEntry(Entry{
		Timestamp: time.Now(),
		Action:    action,
		Source:    source,
		Details:   details,
	})
}

// LogRun appends the outcome of a layout run.
func LogRun(source string, frames int, reason string, cached bool, duration time.Duration) error {
	return appendEntry(Entry{
		Timestamp: time.Now(),
		Action:    "layout",
		Source:    source,
		Frames:    frames,
		Reason:    reason,
		Cached:    cached,
		Duration:  duration.Seconds(),
	})
}

func appendEntry(entry Entry) error {
	path := logPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	data, _ := json.Marshal(entry)
	_, err = fmt.Fprintf(f, "%s\n", data)
	return err
}

// Read returns the last N entries from the log, newest first. Unparseable lines are
// skipped.
func Read(count int) ([]Entry, error) {
	f, err := os.Open(logPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if json.Unmarshal(line, &e) == nil {
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if count > 0 && len(entries) > count {
		entries = entries[:count]
	}
	return entries, nil
}

// Search finds entries whose action, source or details contain query, ignoring case.
func Search(query string, count int) ([]Entry, error) {
	all, err := Read(0)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var results []Entry
	for _, e := range all {
		if matches(e.Action, q) || matches(e.Source, q) || matches(e.Details, q) {
			results = append(results, e)
			if count > 0 && len(results) >= count {
				break
			}
		}
	}
	return results, nil
}

func matches(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}

// Clear removes all log entries.
func Clear() error {
	err := os.Remove(logPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
