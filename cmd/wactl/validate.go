package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/water-accounting-dashboard/internal/adapter/textfile"
	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
	"github.com/couchcryptid/water-accounting-dashboard/internal/pipeline"
)

// maxListed caps the row numbers printed per problem.
const maxListed = 10

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check each input file against its schema",
	Long:  `validate reports PASS or FAIL per source for file presence, encoding, expected columns and numeric extraction coverage.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		srcs, err := sources()
		if err != nil {
			return err
		}
		if !validate(cmd.OutOrStdout(), srcs) {
			return errors.New("validation failed")
		}
		return nil
	},
}

// phase tracks pass/fail for one source.
type phase struct {
	name     string
	errors   []string
	warnings []string
	notes    []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// validate prints one phase per source and reports whether all passed.
func validate(w io.Writer, srcs []pipeline.Source) bool {
	fmt.Fprintln(w, "=== Water Accounting Input Validation ===")
	fmt.Fprintln(w)

	phases := make([]*phase, 0, len(srcs))
	for _, src := range srcs {
		phases = append(phases, validateSource(src))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if len(p.notes)+len(p.warnings)+len(p.errors) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for _, n := range p.notes {
			fmt.Fprintf(w, "  %s\n", n)
		}
		for _, m := range p.warnings {
			fmt.Fprintf(w, "  warning: %s\n", m)
		}
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}

func validateSource(src pipeline.Source) *phase {
	sc := src.Schema
	p := &phase{name: fmt.Sprintf("%s (%s)", sc.Name, sc.SourceType)}

	if src.Path == "" {
		p.errorf("no file configured")
		return p
	}
	if _, err := os.Stat(src.Path); errors.Is(err, fs.ErrNotExist) {
		p.errorf("file not found: %s", src.Path)
		return p
	}

	res, err := textfile.Read(src.Path)
	if err != nil {
		p.errorf("read %s: %v", src.Path, err)
		return p
	}
	p.notef("file: %s", src.Path)
	p.notef("encoding: %s, delimiter: %q, rows: %d", res.Encoding, res.Delimiter, len(res.Table.Rows))

	if missing := domain.MissingColumns(sc, res.Table.Header); len(missing) > 0 {
		p.errorf("expected columns not found: %s", strings.Join(missing, ", "))
		return p
	}

	checkExtraction(p, sc, res.Table)

	out, err := domain.Normalize(sc, res.Table)
	if err != nil {
		p.errorf("normalize: %v", err)
		return p
	}
	for _, warn := range out.Warnings {
		p.warnf("%s", warn)
	}
	p.notef("records: %d", len(out.Records))
	return p
}

// checkExtraction reports how many rows carry a numeric extraction value in
// the first extraction column present. Non-numeric cells are errors; blank
// cells are counted as missing.
func checkExtraction(p *phase, sc domain.Schema, t domain.Table) {
	col, unit := extractionColumn(sc, t.Header)
	if col < 0 {
		if !sc.ExtractionOptional {
			p.errorf("no extraction column among %s", candidateNames(sc))
		}
		return
	}

	var numeric, blank int
	var bad []string
	for i, row := range t.Rows {
		cell := ""
		if col < len(row) {
			cell = strings.TrimSpace(row[col])
		}
		switch _, ok := domain.ParseNumber(cell); {
		case ok:
			numeric++
		case domain.IsUnknown(cell):
			blank++
		default:
			// Header is line 1.
			bad = append(bad, fmt.Sprintf("line %d: %q", i+2, cell))
		}
	}

	p.notef("extraction: %s (%s), %d/%d numeric, %d blank", t.Header[col], unit, numeric, len(t.Rows), blank)
	if len(bad) > 0 {
		listed := bad[:min(maxListed, len(bad))]
		p.errorf("%d non-numeric extraction values: %s", len(bad), strings.Join(listed, "; "))
	}
}

// extractionColumn resolves the schema's extraction candidates against the
// raw header, following the rename map.
func extractionColumn(sc domain.Schema, header []string) (int, domain.Unit) {
	canonical := make([]string, len(header))
	for i, h := range header {
		canonical[i] = h
		if name, ok := sc.Rename[h]; ok {
			canonical[i] = name
		}
	}
	for _, ec := range sc.Extraction {
		for i, name := range canonical {
			if name == ec.Column {
				return i, ec.Unit
			}
		}
	}
	return -1, ""
}

func candidateNames(sc domain.Schema) string {
	names := make([]string, len(sc.Extraction))
	for i, ec := range sc.Extraction {
		names[i] = ec.Column
	}
	return strings.Join(names, ", ")
}
