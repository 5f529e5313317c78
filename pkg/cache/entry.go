package cache

import "time"

// Metadata describes a processed payload.
type Metadata struct {
	OriginalSize  [2]int `json:"original_size"`
	ProcessedSize [2]int `json:"processed_size"`
	Format        string `json:"format"`
	MimeType      string `json:"mime_type"`
}

// Entry is the persisted cache document. Timestamp is epoch seconds.
type Entry struct {
	Data      string   `json:"data"`
	Timestamp float64  `json:"timestamp"`
	Metadata  Metadata `json:"metadata"`
}

// Time returns Timestamp as a time.Time.
func (e *Entry) Time() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// Age reports how old the entry is relative to now.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.Time())
}

func timestamp(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
