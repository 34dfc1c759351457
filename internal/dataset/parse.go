package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// parseFragment tokenizes a whitespace-delimited BLS table. The first
// non-empty line is the header; rows with more fields than the header
// are skipped, rows with fewer get nil for the missing columns. Header
// names observed are added to columns.
func parseFragment(key string, data []byte, columns map[string]struct{}) []TimeSeriesRow {
	lines := strings.Split(string(data), "\n")

	var header []string
	var rows []TimeSeriesRow
	index := map[string]int{}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if header == nil {
			header = fields
			for i, name := range header {
				name = strings.TrimSpace(name)
				index[name] = i
				columns[name] = struct{}{}
			}
			continue
		}
		if len(fields) > len(header) {
			continue
		}
		rows = append(rows, TimeSeriesRow{
			SeriesID:  strings.TrimSpace(fieldAt(fields, index, "series_id")),
			Year:      coerceInt(fieldAt(fields, index, "year")),
			Period:    strings.TrimSpace(fieldAt(fields, index, "period")),
			Value:     coerceFloat(fieldAt(fields, index, "value")),
			SourceKey: key,
		})
	}
	return rows
}

func fieldAt(fields []string, index map[string]int, column string) string {
	i, ok := index[column]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// decodePopulationRecords unwraps the {"data": [...]} payload envelope.
func decodePopulationRecords(raw []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload struct {
		Data []map[string]any `json:"data"`
	}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode population payload: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, ErrMalformedPayload
	}
	return payload.Data, nil
}

// lookupField returns the first present field value rendered as text.
func lookupField(record map[string]any, names ...string) string {
	for _, name := range names {
		if value, ok := record[name]; ok {
			return renderValue(value)
		}
	}
	return ""
}

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// coerceFloat parses text to a float; unparsable input becomes nil,
// never an error.
func coerceFloat(text string) *float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	return &value
}

// coerceInt parses text to an integer, accepting float renderings of
// whole numbers ("2013.0"); unparsable input becomes nil.
func coerceInt(text string) *int {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if value, err := strconv.Atoi(text); err == nil {
		return &value
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	value := int(f)
	if float64(value) != f {
		return nil
	}
	return &value
}
