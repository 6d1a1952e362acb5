package storefront

import (
	"catalogmatch/internal/extract"
	"errors"
)

var (
	ErrNoMatch     = errors.New("no entry found")
	ErrUnavailable = errors.New("entry not available")
)

// AppInfo is a search result that passed the matcher.
type AppInfo struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// CompleteData is everything known about a single storefront entry.
type CompleteData struct {
	ID       int              `json:"id,omitempty"`
	Name     string           `json:"name,omitempty"`
	Reviews  extract.Reviews  `json:"reviews"`
	Tags     []string         `json:"tags"`
	Metadata extract.Metadata `json:"metadata"`
}

// Result is returned by every lookup that can fail, Error is set iff Success
// is false.
type Result struct {
	Success bool         `json:"success"`
	Data    CompleteData `json:"data"`
	Error   string       `json:"error,omitempty"`
}

func success(data CompleteData) Result {
	return Result{Success: true, Data: data}
}

func failure(data CompleteData, err error) Result {
	return Result{Data: data, Error: err.Error()}
}

// Cached is the value stored in the lookup cache, only one of its fields is
// set depending on the kind of key.
type Cached struct {
	App  *AppInfo
	Data *CompleteData
}
