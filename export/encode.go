package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sartorproj/autoforecast/errs"
)

const stageExport = "export"

// Format is an output encoding.
type Format string

// Supported formats.
const (
	CSV  Format = "csv"
	TSV  Format = "tsv"
	JSON Format = "json"
	YAML Format = "yaml"
)

// ParseFormat accepts a format name or file extension, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(s), ".")); f {
	case CSV, TSV, JSON, YAML:
		return f, nil
	case "yml":
		return YAML, nil
	}
	return "", errs.Errorf(errs.KindExport, stageExport, "unknown format %q", s)
}

// Encode serializes t in the given format.
func Encode(t Table, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, t, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes t to w.
func Write(w io.Writer, t Table, format Format) error {
	var err error
	switch format {
	case CSV, TSV:
		err = writeDelimited(w, t, format)
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(normalize(t))
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(normalize(t)); err == nil {
			err = enc.Close()
		}
	default:
		return errs.Errorf(errs.KindExport, stageExport, "unknown format %q", format)
	}
	if err != nil {
		return errs.New(errs.KindExport, stageExport, fmt.Errorf("write %s: %w", format, err))
	}
	return nil
}

func writeDelimited(w io.Writer, t Table, format Format) error {
	cw := csv.NewWriter(w)
	if format == TSV {
		cw.Comma = '\t'
	}
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// normalize replaces nil slices so empty tables encode as [] rather than null.
func normalize(t Table) Table {
	if t.Columns == nil {
		t.Columns = []string{}
	}
	if t.Rows == nil {
		t.Rows = [][]string{}
	}
	return t
}

// Decode parses data written by Encode.
func Decode(data []byte, format Format) (Table, error) {
	var t Table
	var err error
	switch format {
	case CSV, TSV:
		r := csv.NewReader(bytes.NewReader(data))
		if format == TSV {
			r.Comma = '\t'
		}
		var records [][]string
		records, err = r.ReadAll()
		if err == nil && len(records) > 0 {
			t.Columns = records[0]
			t.Rows = records[1:]
		}
	case JSON:
		err = json.Unmarshal(data, &t)
	case YAML:
		err = yaml.Unmarshal(data, &t)
	default:
		return Table{}, errs.Errorf(errs.KindExport, stageExport, "unknown format %q", format)
	}
	if err != nil {
		return Table{}, errs.New(errs.KindExport, stageExport, fmt.Errorf("decode %s: %w", format, err))
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return Table{}, errs.Errorf(errs.KindExport, stageExport, "row %d has %d cells, header has %d", i+1, len(row), len(t.Columns))
		}
	}
	return normalize(t), nil
}

// File names used by WriteFiles, without extension.
const (
	ComparisonFile  = "model_comparison"
	PredictionsFile = "predictions"
)

// Bundle is the pair of tables produced by a run.
type Bundle struct {
	Comparison  Table
	Predictions Table
}

// WriteFiles writes the bundle into dir, creating it if needed, and returns
// the paths written.
func WriteFiles(dir string, format Format, b Bundle) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.New(errs.KindExport, stageExport, fmt.Errorf("create output dir: %w", err))
	}

	files := []struct {
		name  string
		table Table
	}{
		{ComparisonFile, b.Comparison},
		{PredictionsFile, b.Predictions},
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		data, err := Encode(f.table, format)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, f.name+"."+string(format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, errs.New(errs.KindExport, stageExport, fmt.Errorf("write %s: %w", path, err))
		}
		paths = append(paths, path)
	}
	return paths, nil
}
