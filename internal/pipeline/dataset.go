package pipeline

import (
	"time"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

// Status is the outcome of loading one source file.
type Status string

const (
	StatusOK      Status = "ok"
	StatusMissing Status = "missing"
	StatusInvalid Status = "invalid"
	StatusError   Status = "error"
)

// SourceReport describes how one input file was loaded. Messages are shown
// inline on the dashboard.
type SourceReport struct {
	Name       string            `json:"name"`
	SourceType domain.SourceType `json:"source_type"`
	Path       string            `json:"path"`
	Encoding   string            `json:"encoding,omitempty"`
	Status     Status            `json:"status"`
	Rows       int               `json:"rows"`
	Messages   []string          `json:"messages,omitempty"`
}

// Dataset is an immutable snapshot of all sources concatenated into one
// record table. Handlers must not modify it.
type Dataset struct {
	ID       string          `json:"id"`
	LoadedAt time.Time       `json:"loaded_at"`
	Records  []domain.Record `json:"-"`
	Sources  []SourceReport  `json:"sources"`

	present map[domain.SourceType]bool
}

// HasSourceType reports whether the full dataset contains at least one
// record of st, before any filtering.
func (d *Dataset) HasSourceType(st domain.SourceType) bool {
	return d != nil && d.present[st]
}

// Messages returns every inline message across sources, prefixed by source name.
func (d *Dataset) Messages() []string {
	if d == nil {
		return nil
	}
	var out []string
	for _, s := range d.Sources {
		for _, m := range s.Messages {
			out = append(out, s.Name+": "+m)
		}
	}
	return out
}

func newDataset(id string, at time.Time, reports []SourceReport, records []domain.Record) *Dataset {
	present := make(map[domain.SourceType]bool, len(domain.SourceTypes))
	for i := range records {
		present[records[i].SourceType] = true
	}
	return &Dataset{
		ID:       id,
		LoadedAt: at,
		Records:  records,
		Sources:  reports,
		present:  present,
	}
}
