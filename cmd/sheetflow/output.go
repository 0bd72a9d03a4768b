package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"

	"sheetflow/domain/sheet"
)

// writeNDJSON encodes one record per line and flushes; a write error that only
// shows on the final flush is still returned
func writeNDJSON(dst io.Writer, rows iter.Seq2[*sheet.Record, error]) (int, error) {
	w := bufio.NewWriter(dst)
	enc := json.NewEncoder(w)
	count := 0
	for row, err := range rows {
		if err != nil {
			return count, err
		}
		if err := enc.Encode(row); err != nil {
			return count, err
		}
		count++
	}
	if err := w.Flush(); err != nil {
		return count, fmt.Errorf("failed to flush output: %w", err)
	}
	return count, nil
}

// closeInto closes c and reports its error through err unless err is already set
func closeInto(err *error, c io.Closer, name string) {
	if cerr := c.Close(); cerr != nil && *err == nil {
		*err = fmt.Errorf("failed to close %s: %w", name, cerr)
	}
}
