package server

import (
	"sync"
	"time"

	"github.com/rennerdo30/proxycfg/internal/sysproxy"
)

// LookupEntry records one answered lookup.
type LookupEntry struct {
	ID        int64             `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	URL       string            `json:"url"`
	ClientIP  string            `json:"client_ip"`
	Source    string            `json:"source"`
	Decision  sysproxy.Decision `json:"decision"`
}

// LookupLog keeps the most recent lookups in a bounded buffer.
type LookupLog struct {
	mu      sync.RWMutex
	entries []LookupEntry
	maxSize int
	nextID  int64
}

// NewLookupLog creates a log holding up to maxSize entries.
func NewLookupLog(maxSize int) *LookupLog {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &LookupLog{
		entries: make([]LookupEntry, 0, maxSize),
		maxSize: maxSize,
		nextID:  1,
	}
}

// Add appends entry, dropping the oldest one when full.
func (l *LookupLog) Add(entry LookupEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.ID = l.nextID
	l.nextID++

	if len(l.entries) >= l.maxSize {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (l *LookupLog) Recent(n int) []LookupEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}

	result := make([]LookupEntry, n)
	for i := 0; i < n; i++ {
		result[i] = l.entries[len(l.entries)-1-i]
	}
	return result
}

// Since returns entries with an ID greater than sinceID, newest first.
func (l *LookupLog) Since(sinceID int64) []LookupEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []LookupEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].ID <= sinceID {
			break
		}
		result = append(result, l.entries[i])
	}
	return result
}

// Len returns the number of stored entries.
func (l *LookupLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
