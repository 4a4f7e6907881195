package importer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Wizard stages. A session only ever moves along
// upload → map → preview → submit, one step back, or a full reset.
const (
	StageUpload  = "upload"
	StageMap     = "map"
	StagePreview = "preview"
	StageSubmit  = "submit"
)

var stageOrder = map[string]int{
	StageUpload: 0, StageMap: 1, StagePreview: 2, StageSubmit: 3,
}

// Session is one in-flight import. Mapping is field key → source column
// header.
type Session struct {
	ID            uuid.UUID         `json:"id"`
	CompanyID     uuid.UUID         `json:"companyId"`
	Target        string            `json:"target"`
	Stage         string            `json:"stage"`
	FileName      string            `json:"fileName"`
	Headers       []string          `json:"headers"`
	Rows          [][]string        `json:"-"`
	RowCount      int               `json:"rowCount"`
	Mapping       map[string]string `json:"mapping"`
	Warnings      []string          `json:"warnings,omitempty"`
	InsertedCount int               `json:"insertedCount"`
	RowErrors     []string          `json:"rowErrors,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	ExpiresAt     time.Time         `json:"expiresAt"`
}

// AutoMap matches headers to dictionary fields by case-insensitive equality
// with the field label or key. Unmatched fields stay unmapped.
func AutoMap(headers []string, fields []Field) map[string]string {
	mapping := make(map[string]string)
	for _, f := range fields {
		for _, h := range headers {
			if strings.EqualFold(h, f.Label) || strings.EqualFold(h, f.Key) {
				mapping[f.Key] = h
				break
			}
		}
	}
	return mapping
}

// CheckMapping returns blocking errors (unmapped required fields, mappings
// to headers the file does not have) and non-blocking warnings (one column
// feeding several fields).
func CheckMapping(mapping map[string]string, headers []string, fields []Field) (errs, warnings []string) {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	fieldByKey := make(map[string]Field, len(fields))
	for _, f := range fields {
		fieldByKey[f.Key] = f
	}

	for key, header := range mapping {
		if _, ok := fieldByKey[key]; !ok {
			errs = append(errs, fmt.Sprintf("unknown field %q in mapping", key))
			continue
		}
		if !known[header] {
			errs = append(errs, fmt.Sprintf("column %q mapped to %q does not exist in the file", header, key))
		}
	}

	for _, f := range fields {
		if f.Required && mapping[f.Key] == "" {
			errs = append(errs, fmt.Sprintf("required field %q is not mapped", f.Key))
		}
	}

	used := make(map[string][]string)
	for key, header := range mapping {
		if header != "" {
			used[header] = append(used[header], key)
		}
	}
	for header, keys := range used {
		if len(keys) > 1 {
			sort.Strings(keys)
			warnings = append(warnings, fmt.Sprintf("column %q is mapped to multiple fields: %s",
				header, strings.Join(keys, ", ")))
		}
	}
	sort.Strings(errs)
	return errs, warnings
}

// Coerce converts a raw cell into the field's Go type.
func Coerce(value string, ft FieldType) (interface{}, error) {
	value = strings.TrimSpace(value)
	switch ft {
	case FieldNumber:
		if value == "" {
			return 0.0, nil
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", value)
		}
		return n, nil
	case FieldDate:
		if value == "" {
			return nil, nil
		}
		for _, layout := range []string{"2006-01-02", "01/02/2006", "1/2/2006", time.RFC3339} {
			if t, err := time.Parse(layout, value); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%q is not a recognized date", value)
	case FieldBool:
		if value == "" {
			return false, nil
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean", value)
		}
		return b, nil
	default:
		return value, nil
	}
}

// Records applies the mapping to every data row, producing type-coerced
// records plus per-row errors for cells that fail coercion.
func Records(s *Session, fields []Field) ([]map[string]interface{}, []string) {
	col := make(map[string]int, len(s.Headers))
	for i, h := range s.Headers {
		col[h] = i
	}

	var rowErrors []string
	records := make([]map[string]interface{}, 0, len(s.Rows))
	for i, row := range s.Rows {
		record := make(map[string]interface{}, len(fields))
		ok := true
		for _, f := range fields {
			header := s.Mapping[f.Key]
			if header == "" {
				continue
			}
			idx, found := col[header]
			if !found || idx >= len(row) {
				continue
			}
			v, err := Coerce(row[idx], f.Type)
			if err != nil {
				rowErrors = append(rowErrors, fmt.Sprintf("row %d, field %s: %v", i+1, f.Key, err))
				ok = false
				continue
			}
			record[f.Key] = v
		}
		if ok {
			records = append(records, record)
		}
	}
	return records, rowErrors
}

// Preview returns up to n mapped, coerced rows without touching storage.
func Preview(s *Session, fields []Field, n int) ([]map[string]interface{}, []string) {
	trimmed := *s
	if len(trimmed.Rows) > n {
		trimmed.Rows = trimmed.Rows[:n]
	}
	return Records(&trimmed, fields)
}

// Back moves one stage backwards; upload stays where it is.
func (s *Session) Back() {
	switch s.Stage {
	case StageMap:
		s.Stage = StageUpload
	case StagePreview:
		s.Stage = StageMap
	case StageSubmit:
		s.Stage = StagePreview
	}
}

// Reset returns the session to the upload stage, dropping mapping edits and
// any submit outcome but keeping the parsed file.
func (s *Session) Reset(fields []Field) {
	s.Stage = StageUpload
	s.Mapping = AutoMap(s.Headers, fields)
	s.Warnings = nil
	s.InsertedCount = 0
	s.RowErrors = nil
}
