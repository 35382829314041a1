package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"studio-portal/internal/admin"
	"studio-portal/internal/models"
)

const timeLayout = "2006-01-02 15:04"

// column describes one table column. A non-zero width wraps longer cells.
type column struct {
	title string
	align text.Align
	width int
}

func renderTable(cols []column, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: c.align, AlignHeader: text.AlignLeft}
		if c.width > 0 {
			configs[i].WidthMax = c.width
			configs[i].WidthMaxEnforcer = text.WrapSoft
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

func renderOverview(ov admin.Overview) string {
	var b strings.Builder

	stats := []column{
		{title: "Total", align: text.AlignRight},
		{title: "Selecting", align: text.AlignRight},
		{title: "Reviewing", align: text.AlignRight},
		{title: "Delivered", align: text.AlignRight},
		{title: "Completed this month", align: text.AlignRight},
	}
	b.WriteString(renderTable(stats, [][]string{{
		fmt.Sprint(ov.Stats.Total),
		fmt.Sprint(ov.Stats.Selecting),
		fmt.Sprint(ov.Stats.Reviewing),
		fmt.Sprint(ov.Stats.Delivered),
		fmt.Sprint(ov.Stats.CompletedThisMonth),
	}}))
	b.WriteString("\n")

	if len(ov.Sessions) == 0 {
		b.WriteString("No sessions yet.")
		return b.String()
	}

	rows := make([][]string, 0, len(ov.Sessions))
	for _, r := range ov.Sessions {
		rows = append(rows, []string{
			r.Name,
			r.ClientName,
			r.Occasion,
			r.StageLabel,
			string(r.Status),
			r.Progress(),
			r.UpdatedAt.Local().Format(timeLayout),
		})
	}
	b.WriteString(renderTable([]column{
		{title: "Session"},
		{title: "Client"},
		{title: "Occasion"},
		{title: "Stage"},
		{title: "Status"},
		{title: "Selected", align: text.AlignRight},
		{title: "Updated"},
	}, rows))
	return b.String()
}

func renderInquiries(inquiries []models.Inquiry) string {
	if len(inquiries) == 0 {
		return "No inquiries yet."
	}
	rows := make([][]string, 0, len(inquiries))
	for _, in := range inquiries {
		contact := in.Email
		if in.Phone != "" {
			contact += "\n" + in.Phone
		}
		rows = append(rows, []string{
			in.CreatedAt.Local().Format(timeLayout),
			in.Name,
			contact,
			in.SessionType,
			in.DueDate,
			in.Message,
		})
	}
	return renderTable([]column{
		{title: "Received"},
		{title: "Name"},
		{title: "Contact"},
		{title: "Session"},
		{title: "Due"},
		{title: "Message", width: 48},
	}, rows)
}
