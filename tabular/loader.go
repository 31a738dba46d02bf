package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseError reports input that could not be decoded as a tabular file.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// xlsxMagic is the ZIP local-file-header signature that opens every XLSX
// container.
var xlsxMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// Decode loads a byte buffer as either XLSX or CSV, auto-detected from
// the magic header. Column names are stripped of surrounding whitespace
// and placeholder ("Unnamed") columns are dropped. No value-level
// validation happens here.
func Decode(b []byte) (*Table, error) {
	if len(b) == 0 {
		return nil, &ParseError{Reason: "empty file"}
	}
	if bytes.HasPrefix(b, xlsxMagic) {
		return decodeXLSX(b)
	}
	return decodeCSV(b)
}

func decodeXLSX(b []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, &ParseError{Reason: "failed to open XLSX", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Reason: "XLSX file contains no sheets"}
	}

	// First sheet only, matching how the files are produced.
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Reason: "failed to read XLSX rows", Err: err}
	}
	return buildTable(records)
}

func decodeCSV(b []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(b))
	reader.FieldsPerRecord = -1 // allow ragged rows

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ParseError{Reason: "failed to read CSV", Err: err}
	}
	return buildTable(records)
}

// buildTable turns a row matrix (header first) into a Table. Short data
// rows pad with missing cells; long rows truncate to the header width.
func buildTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, &ParseError{Reason: "no header row found"}
	}

	header := records[0]
	data := records[1:]

	type keptColumn struct {
		name  string
		index int
	}
	var kept []keptColumn
	seen := make(map[string]bool)
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" || strings.HasPrefix(name, "Unnamed") {
			continue
		}
		if seen[name] {
			continue // first occurrence wins
		}
		seen[name] = true
		kept = append(kept, keptColumn{name: name, index: i})
	}
	if len(kept) == 0 {
		return nil, &ParseError{Reason: "no named columns found"}
	}

	columns := make([]*Column, len(kept))
	for ci, kc := range kept {
		values := make([]Value, len(data))
		textCount := 0
		for ri, record := range data {
			var cell string
			if kc.index < len(record) {
				cell = record[kc.index]
			}
			values[ri] = parseCell(cell)
			if values[ri].Kind == KindText {
				textCount++
			}
		}
		kind := KindNumber
		if textCount > 0 {
			kind = KindText
		}
		columns[ci] = &Column{Name: kc.name, Kind: kind, Values: values}
	}

	return NewTable(columns, len(data)), nil
}

// parseCell classifies one raw cell. Empty cells, NaN and infinities all
// map to the missing state so downstream code has a single "no value"
// case to handle.
func parseCell(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Value{Kind: KindMissing}
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return Value{Kind: KindMissing}
		}
		return Value{Kind: KindNumber, Num: n}
	}
	return Value{Kind: KindText, Str: s}
}
