package job

import (
	"math"
	"time"

	ferrors "github.com/Aman-CERP/findex/internal/errors"
)

// Kind tags an event.
type Kind string

const (
	KindStatus        Kind = "status"
	KindProgress      Kind = "progress"
	KindResult        Kind = "result"
	KindError         Kind = "error"
	KindCancelled     Kind = "cancelled"
	KindSearchResults Kind = "searchResults"
)

// Stage names the producer of an event.
type Stage string

const (
	StageHost   Stage = "host"
	StageCrawl  Stage = "crawl"
	StageIndex  Stage = "index"
	StageSearch Stage = "search"
)

// Pause narration messages.
const (
	MessagePaused  = "Paused"
	MessageResumed = "Resumed"
)

// Stats summarises a finished stage.
type Stats struct {
	TotalFiles     int     `json:"totalFiles"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	FilesPerSecond int64   `json:"filesPerSecond"`
}

// NewStats builds Stats for total items over elapsed. ElapsedSeconds is
// rounded to milliseconds; when that rounds to zero FilesPerSecond is 0.
func NewStats(total int, elapsed time.Duration) Stats {
	secs := math.Round(elapsed.Seconds()*1000) / 1000
	s := Stats{TotalFiles: total, ElapsedSeconds: secs}
	if secs > 0 {
		s.FilesPerSecond = int64(math.Round(float64(total) / elapsed.Seconds()))
	}
	return s
}

// ProgressInfo is the payload of a progress event.
type ProgressInfo struct {
	Indexed int `json:"indexed"`
	Total   int `json:"total"`
}

// Hit is one search result as presented to the host.
type Hit struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Modified  time.Time `json:"modified"`
	Extension string    `json:"extension"`
}

// Event is the single message shape crossing the core to host boundary.
// Type selects which payload fields are meaningful.
type Event struct {
	Type     Kind          `json:"type"`
	JobID    string        `json:"jobId,omitempty"`
	Stage    Stage         `json:"stage,omitempty"`
	Time     time.Time     `json:"time"`
	Message  string        `json:"message,omitempty"`
	Code     string        `json:"code,omitempty"`
	Progress *ProgressInfo `json:"progress,omitempty"`
	Stats    *Stats        `json:"stats,omitempty"`
	Root     string        `json:"root,omitempty"`
	Hits     []Hit         `json:"hits,omitempty"`
}

// IsTerminal reports whether e ends a stage.
func (e Event) IsTerminal() bool {
	switch e.Type {
	case KindResult, KindError, KindCancelled:
		return true
	}
	return false
}

// Status builds a status event.
func Status(message string) Event {
	return Event{Type: KindStatus, Message: message}
}

// Progress builds a progress event.
func Progress(indexed, total int) Event {
	return Event{Type: KindProgress, Progress: &ProgressInfo{Indexed: indexed, Total: total}}
}

// Result builds a stage result event.
func Result(stats Stats, root string) Event {
	return Event{Type: KindResult, Stats: &stats, Root: root}
}

// Error builds an error event from err, carrying its code when it has one.
func Error(err error) Event {
	return Event{Type: KindError, Message: ferrors.FormatMessage(err), Code: ferrors.GetCode(err)}
}

// Cancelled builds a cancelled event.
func Cancelled() Event {
	return Event{Type: KindCancelled}
}

// SearchResults builds a search response event.
func SearchResults(hits []Hit) Event {
	if hits == nil {
		hits = []Hit{}
	}
	return Event{Type: KindSearchResults, Hits: hits}
}

// Env is what a stage receives from its job when it is spawned.
type Env struct {
	Control *Control
	Tracker *Tracker
	Emit    func(Event)
}
