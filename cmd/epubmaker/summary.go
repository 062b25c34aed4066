package main

import (
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/yuanying/epubmaker/internal/converter"
)

// renderSummary lists every manifest item with its origin, fallback and
// spine position, followed by the book identifier and archive size.
func renderSummary(result *converter.Result, colorize bool) string {
	spinePos := make(map[string]int, len(result.Manifest.Spine))
	for i, ref := range result.Manifest.Spine {
		spinePos[ref.IDRef] = i + 1
	}
	generated := make(map[string]bool)
	for _, entry := range result.Entries {
		if entry.Fallback != nil && entry.Fallback.Generated {
			generated[entry.Fallback.ID()] = true
		}
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if colorize {
		tw.Style().Color.Header = text.Colors{text.FgHiBlue, text.Bold}
	}
	tw.AppendHeader(table.Row{"ID", "Href", "Media Type", "Origin", "Fallback", "Spine"})
	for _, item := range result.Manifest.Items {
		pos := ""
		if n, ok := spinePos[item.ID]; ok {
			pos = strconv.Itoa(n)
		}
		origin := "source"
		if generated[item.ID] {
			origin = "wrapper"
		}
		tw.AppendRow(table.Row{item.ID, item.Href, item.MediaType, origin, item.Fallback, pos})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	tw.SetCaption("%s  %s  %s", result.Metadata.Identifier, result.OutputPath, humanize.Bytes(uint64(result.Size)))

	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
