// Package textfile reads the delimited input files into raw header/row
// tables. Files are decoded as UTF-8 and fall back to Windows-1256 (Arabic
// script code page, as exported by legacy Persian spreadsheets) when the
// bytes are not valid UTF-8.
package textfile

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/couchcryptid/water-accounting-dashboard/internal/domain"
)

// Encoding names reported in load results.
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1256 = "cp1256"
)

// ErrEmptyFile is returned when a file has no header line.
var ErrEmptyFile = errors.New("file has no header")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Result is a decoded table plus the encoding it was read with.
type Result struct {
	Table     domain.Table
	Encoding  string
	Delimiter rune
}

// Read loads and parses the file at path. A missing file surfaces as an
// error satisfying errors.Is(err, fs.ErrNotExist).
func Read(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	return Parse(data)
}

// Parse decodes data and tokenizes it as delimited text.
func Parse(data []byte) (Result, error) {
	text, enc, err := Decode(data)
	if err != nil {
		return Result{}, err
	}
	delim := SniffDelimiter(text)
	table, err := tokenize(text, delim)
	if err != nil {
		return Result{}, err
	}
	return Result{Table: table, Encoding: enc, Delimiter: delim}, nil
}

// Decode returns data as UTF-8 text and the name of the source encoding.
func Decode(data []byte) (string, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}
	decoded, _, err := transform.Bytes(charmap.Windows1256.NewDecoder(), data)
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", EncodingWindows1256, err)
	}
	return string(decoded), EncodingWindows1256, nil
}

var candidateDelimiters = []rune{',', ';', '\t'}

// SniffDelimiter picks the delimiter occurring most often in the header
// line, defaulting to a comma.
func SniffDelimiter(text string) rune {
	header := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		header = text[:i]
	}
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(header, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func tokenize(text string, delim rune) (domain.Table, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return domain.Table{}, ErrEmptyFile
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := domain.Table{Header: header}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("read row: %w", err)
		}
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
