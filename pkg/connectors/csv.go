package connectors

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// readCSV loads a CSV file and returns its data rows as column-name maps.
// The first row is the header. Rows with extra trailing empty fields are
// accepted with a warning; rows with fewer fields than the header or with
// extra non-empty fields are skipped with a warning.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	var rows []map[string]string
	for i, rec := range records[1:] {
		if len(rec) < len(header) {
			slog.Warn("Skipping short CSV row", "file", path, "row", i+2,
				"fields", len(rec), "expected", len(header))
			continue
		}
		if len(rec) > len(header) {
			extra := rec[len(header):]
			if !allEmpty(extra) {
				slog.Warn("Skipping CSV row with extra non-empty fields",
					"file", path, "row", i+2)
				continue
			}
			slog.Warn("CSV row has trailing empty fields", "file", path, "row", i+2)
			rec = rec[:len(header)]
		}
		row := make(map[string]string, len(header))
		for j, col := range header {
			row[strings.TrimSpace(col)] = strings.TrimSpace(rec[j])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func allEmpty(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// splitServices parses a pipe-delimited service list.
func splitServices(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
