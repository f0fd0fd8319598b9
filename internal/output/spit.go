// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v2"

	"github.com/staranto/sccachectl/internal/config"
	"github.com/staranto/sccachectl/internal/store"
)

// Formats lists the accepted --output values, default first.
var Formats = []string{"text", "json", "yaml"}

// Columns is the column order of every listing.
var Columns = []string{"key", "size", "created", "location"}

// Options controls Spit.
type Options struct {
	Format string
	Sort   string
	Filter string
	Color  bool
	Titles bool
	// Now anchors relative ages in text output. Defaults to time.Now.
	Now func() time.Time
}

// Rows flattens entries into rows keyed by Columns.
func Rows(entries []store.Entry) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, map[string]interface{}{
			"key":      e.Key,
			"size":     e.Size,
			"created":  e.CreatedAt,
			"location": e.Location,
		})
	}
	return rows
}

// Spit filters, sorts and renders entries to w.
func Spit(w io.Writer, entries []store.Entry, opts Options) error {
	rows := FilterDataset(Rows(entries), opts.Filter)
	SortDataset(rows, opts.Sort)
	log.Debugf("rows: %d of %d", len(rows), len(entries))

	switch opts.Format {
	case "json":
		b, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		b, err := yaml.Marshal(rows)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	case "", "text":
		return TableWriter(w, rows, opts)
	}

	return fmt.Errorf("unknown output format %q", opts.Format)
}

// TableWriter renders rows as a borderless table. Sizes and ages are
// humanized.
func TableWriter(w io.Writer, rows []map[string]interface{}, opts Options) error {
	if len(rows) == 0 {
		return nil
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	pad, _ := config.GetInt("padding", 2) //nolint:mnd

	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, 0, len(Columns))
		for _, col := range Columns {
			line = append(line, cell(row[col], now()))
		}
		cells = append(cells, line)
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}
			if col > 0 {
				style = style.PaddingLeft(pad)
			}
			return style
		}).
		Headers().
		Rows(cells...)

	if opts.Titles {
		t = t.Headers(Columns...).BorderHeader(false)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func cell(v interface{}, now time.Time) string {
	switch v := v.(type) {
	case int64:
		return humanize.Bytes(uint64(max(v, 0)))
	case time.Time:
		if v.IsZero() {
			return "-"
		}
		return humanize.RelTime(v, now, "ago", "from now")
	}
	return InterfaceToString(v, "-")
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(key+".title", "#f6be00")
	even, _ = config.GetString(key+".even", "#ffffff")
	odd, _ = config.GetString(key+".odd", "#00c8f0")
	return
}

// InterfaceToString converts a value to its display form. Zero values
// render as emptyValue, which defaults to "".
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case float64:
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(b)
	}
}
