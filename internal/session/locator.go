package session

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/grovetools/agentevents/internal/transcript"
	"github.com/tidwall/gjson"
)

// maxHeaderLines bounds how far into a log the locator looks for metadata.
const maxHeaderLines = 100

// LogFile describes an agent log found on disk.
type LogFile struct {
	SessionID string              `json:"sessionId"`
	Provider  transcript.Provider `json:"provider"`
	Cwd       string              `json:"cwd,omitempty"`
	Path      string              `json:"path"`
	StartedAt time.Time           `json:"startedAt"`
}

// Locator finds Claude and Codex logs under a home directory.
type Locator struct {
	HomeDir string
}

// NewLocator creates a locator rooted at the user's home directory.
func NewLocator() (*Locator, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return &Locator{HomeDir: home}, nil
}

// Scan lists every known log, newest first.
func (l *Locator) Scan() ([]LogFile, error) {
	claudeMatches, err := filepath.Glob(filepath.Join(l.HomeDir, ".claude", "projects", "*", "*.jsonl"))
	if err != nil {
		return nil, err
	}
	codexMatches, err := filepath.Glob(filepath.Join(l.HomeDir, ".codex", "sessions", "*", "*", "*", "*.jsonl"))
	if err != nil {
		return nil, err
	}

	var logs []LogFile
	for _, path := range append(claudeMatches, codexMatches...) {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		log := LogFile{
			SessionID: strings.TrimSuffix(filepath.Base(path), ".jsonl"),
			Provider:  transcript.DetectProvider(path),
			Path:      path,
			StartedAt: info.ModTime(),
		}
		readHeader(&log)
		logs = append(logs, log)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].StartedAt.After(logs[j].StartedAt)
	})
	return logs, nil
}

// Resolve finds a log by path or session id.
func (l *Locator) Resolve(spec string) (*LogFile, error) {
	if info, err := os.Stat(spec); err == nil && !info.IsDir() {
		abs, err := filepath.Abs(spec)
		if err != nil {
			abs = spec
		}
		log := &LogFile{
			SessionID: strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
			Provider:  transcript.DetectProvider(abs),
			Path:      abs,
			StartedAt: info.ModTime(),
		}
		return log, nil
	}

	logs, err := l.Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan for sessions: %w", err)
	}
	for i := range logs {
		if logs[i].SessionID == spec {
			return &logs[i], nil
		}
	}
	return nil, fmt.Errorf("could not find log matching %q", spec)
}

// readHeader fills session metadata from the first lines of a log. Missing
// metadata leaves the file name and modification time in place.
func readHeader(log *LogFile) {
	file, err := os.Open(log.Path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, transcript.DefaultMaxLineBytes)

	for lines := 0; scanner.Scan() && lines < maxHeaderLines; lines++ {
		line := scanner.Bytes()
		if !gjson.ValidBytes(line) {
			continue
		}
		entry := gjson.ParseBytes(line)

		switch log.Provider {
		case transcript.ProviderCodex:
			if entry.Get("type").String() != "session_meta" {
				continue
			}
			meta := entry.Get("payload")
			if id := meta.Get("id").String(); id != "" {
				log.SessionID = id
			}
			log.Cwd = meta.Get("cwd").String()
			if ts, err := time.Parse(time.RFC3339Nano, meta.Get("timestamp").String()); err == nil {
				log.StartedAt = ts
			}
			return

		default:
			sessionID := entry.Get("sessionId").String()
			ts, err := time.Parse(time.RFC3339Nano, entry.Get("timestamp").String())
			if sessionID == "" || err != nil {
				continue
			}
			log.SessionID = sessionID
			log.Cwd = entry.Get("cwd").String()
			log.StartedAt = ts
			return
		}
	}
}
