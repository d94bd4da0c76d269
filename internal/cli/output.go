package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/alnah/audiosplit/internal/audio"
	"github.com/alnah/audiosplit/internal/format"
)

// lockedWriter serializes writes from concurrent splits onto one writer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// progressCallback returns a progress callback that reports each finished
// chunk on w. prefix is prepended when several inputs share the writer.
func progressCallback(w io.Writer, prefix string) audio.ProgressFunc {
	return func(c audio.Chunk) {
		_, _ = fmt.Fprintf(w, "%sWrote %s (%s-%s)\n",
			prefix,
			filepath.Base(c.Path),
			format.Timestamp(c.StartTime),
			format.Timestamp(c.EndTime))
	}
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable renders rows as a rounded box table.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// writeRows prints rows as a table when tty is set, tab-separated lines otherwise.
// Plain output carries no header so it can be piped into cut or awk.
func writeRows(w io.Writer, tty bool, headers []string, rows [][]string, aligns []columnAlignment) {
	if tty {
		_, _ = fmt.Fprintln(w, renderTable(headers, rows, aligns))
		return
	}
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
}

// chunkRows converts chunks to table rows: index, start, end, duration, path.
func chunkRows(chunks []audio.Chunk) [][]string {
	rows := make([][]string, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, []string{
			strconv.Itoa(c.Index),
			format.Timestamp(c.StartTime),
			format.Timestamp(c.EndTime),
			format.Timestamp(c.Duration()),
			c.Path,
		})
	}
	return rows
}

var (
	chunkHeaders = []string{"#", "Start", "End", "Duration", "Path"}
	chunkAligns  = []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft}
)

// writeChunks prints the chunks of one split.
func writeChunks(w io.Writer, tty bool, chunks []audio.Chunk) {
	writeRows(w, tty, chunkHeaders, chunkRows(chunks), chunkAligns)
}
