package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/couchcryptid/water-accounting-dashboard/internal/adapter/textfile"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

// Source binds a schema to the file it is read from.
type Source struct {
	Schema domain.Schema
	Path   string
}

// Loader reads and normalizes the configured sources into a Dataset.
type Loader struct {
	sources []Source
	logger  *slog.Logger
}

// NewLoader binds each schema to its path in paths, keyed by schema name.
// Schemas without a path load as missing.
func NewLoader(schemas domain.Schemas, paths map[string]string, logger *slog.Logger) *Loader {
	sources := make([]Source, 0, len(schemas.Sources))
	for _, sc := range schemas.Sources {
		sources = append(sources, Source{Schema: sc, Path: paths[sc.Name]})
	}
	return &Loader{sources: sources, logger: logger}
}

// Sources returns the configured sources in load order.
func (l *Loader) Sources() []Source {
	return l.sources
}

// Load reads every source and concatenates the records. Data problems are
// reported per source and never fail the load; only context cancellation
// is returned as an error.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	reports := make([]SourceReport, 0, len(l.sources))
	var records []domain.Record
	for _, src := range l.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep, recs := LoadSource(src)
		for _, msg := range rep.Messages {
			l.logger.Warn("source load message", "source", rep.Name, "path", rep.Path, "status", rep.Status, "message", msg)
		}
		l.logger.Debug("source loaded", "source", rep.Name, "rows", rep.Rows, "encoding", rep.Encoding)
		reports = append(reports, rep)
		records = append(records, recs...)
	}
	return newDataset(uuid.NewString(), domain.Stamp(), reports, records), nil
}

// LoadSource reads and normalizes one source file. A missing file, missing
// expected columns or an unreadable file yield an empty record set and a
// report explaining why.
func LoadSource(src Source) (SourceReport, []domain.Record) {
	rep := SourceReport{
		Name:       src.Schema.Name,
		SourceType: src.Schema.SourceType,
		Path:       src.Path,
		Status:     StatusOK,
	}
	if src.Path == "" {
		rep.Status = StatusMissing
		rep.Messages = append(rep.Messages, "no file configured")
		return rep, nil
	}

	res, err := textfile.Read(src.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		rep.Status = StatusMissing
		rep.Messages = append(rep.Messages, fmt.Sprintf("file not found: %s", src.Path))
		return rep, nil
	case err != nil:
		rep.Status = StatusError
		rep.Messages = append(rep.Messages, fmt.Sprintf("read %s: %v", src.Path, err))
		return rep, nil
	}
	rep.Encoding = res.Encoding

	out, err := domain.Normalize(src.Schema, res.Table)
	if err != nil {
		var mce *domain.MissingColumnsError
		if errors.As(err, &mce) {
			rep.Status = StatusInvalid
			rep.Messages = append(rep.Messages, "expected columns not found: "+strings.Join(mce.Columns, ", "))
			return rep, nil
		}
		rep.Status = StatusError
		rep.Messages = append(rep.Messages, err.Error())
		return rep, nil
	}
	rep.Rows = len(out.Records)
	rep.Messages = append(rep.Messages, out.Warnings...)
	return rep, out.Records
}

// fingerprint summarizes the size and modification time of every source
// file so the reload loop can detect changes.
func (l *Loader) fingerprint() string {
	var b strings.Builder
	for _, src := range l.sources {
		b.WriteString(src.Path)
		info, err := os.Stat(src.Path)
		if err != nil {
			b.WriteString("|absent;")
			continue
		}
		fmt.Fprintf(&b, "|%d|%d;", info.Size(), info.ModTime().UnixNano())
	}
	return b.String()
}
