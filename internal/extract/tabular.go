package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/maintdesk/backend/internal/apperr"
)

// extractCSV rewrites delimited data as a natural-language table
// description instead of returning raw delimited text. The first
// record is treated as the header. The output shape matters: a header
// block, a blank line, then one line per row, which is exactly what
// the structured chunking mode expects.
func extractCSV(_ context.Context, data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // ragged rows are common in exported sheets

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: parse CSV: %v", apperr.ErrExtractionFailed, err)
	}
	if len(records) == 0 {
		return "", fmt.Errorf("%w: CSV has no rows", apperr.ErrExtractionFailed)
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Table with %d rows and columns: %s.\n\n",
		len(records)-1, strings.Join(header, ", "))

	for n, record := range records[1:] {
		var fields []string
		for i, val := range record {
			val = flatten(val)
			if val == "" {
				continue
			}
			name := fmt.Sprintf("column %d", i+1)
			if i < len(header) && header[i] != "" {
				name = header[i]
			}
			fields = append(fields, fmt.Sprintf("%s is %s", name, val))
		}
		if len(fields) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "Row %d: %s.\n", n+1, strings.Join(fields, "; "))
	}

	return sb.String(), nil
}

// flatten collapses embedded newlines so every row stays on one line.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
