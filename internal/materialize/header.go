package materialize

import (
	"strconv"
	"strings"
	"time"

	"sheetflow/domain/sheet"
)

// headerLabel flattens a header cell into text
func headerLabel(c sheet.Cell) string {
	switch c.Kind {
	case sheet.CellText, sheet.CellRichText:
		return c.PlainText()
	case sheet.CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case sheet.CellBoolean:
		return strconv.FormatBool(c.Bool)
	case sheet.CellInstant:
		return c.Instant.Format(time.RFC3339)
	case sheet.CellFormula:
		if c.Result != nil {
			return headerLabel(*c.Result)
		}
	}
	return ""
}

// resolveHeader builds column names from the header row
func resolveHeader(row []sheet.Cell, opts sheet.ReadOptions) []string {
	header := make([]string, len(row))
	for i, c := range row {
		label := headerLabel(c)
		if opts.TrimHeaders {
			label = strings.TrimSpace(label)
		}
		label = opts.NormalizeHeader.NormalizeHeader(label, i)
		if label == "" {
			label = "column_" + strconv.Itoa(i+1)
		}
		header[i] = label
	}
	return header
}

// splitArray turns a normalized value into a text list
func splitArray(v sheet.Value, opts sheet.ReadOptions) sheet.Value {
	switch v.Kind() {
	case sheet.KindTextList:
		return v
	case sheet.KindNull:
		return sheet.List(nil)
	case sheet.KindText:
		s, _ := v.AsText()
		if s == "" {
			return sheet.List(nil)
		}
		parts := strings.Split(s, opts.ArrayDelimiter)
		items := make([]string, 0, len(parts))
		for _, p := range parts {
			if opts.TrimArrayItems {
				p = strings.TrimSpace(p)
			}
			if opts.RemoveEmptyItems && p == "" {
				continue
			}
			items = append(items, p)
		}
		return sheet.List(items)
	}
	return sheet.List([]string{v.String()})
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
