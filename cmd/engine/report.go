package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"

	"github.com/mergd/curro-sub001/internal/domain"
)

func reportTable(rep domain.Report) pterm.TableData {
	data := pterm.TableData{
		{"Company", "Source", "Status", "Attempts", "Scraped", "New", "Updated", "Removed", "Skipped", "Took"},
	}
	var tot domain.Outcome
	for _, o := range rep.Outcomes {
		status := "ok"
		if !o.OK {
			status = string(o.ErrKind)
			if status == "" {
				status = "failed"
			}
		}
		data = append(data, []string{
			o.CompanyName,
			string(o.SourceType),
			status,
			strconv.Itoa(o.Attempts),
			humanize.Comma(int64(o.Scraped)),
			humanize.Comma(int64(o.Inserted + o.Restored)),
			humanize.Comma(int64(o.Updated)),
			humanize.Comma(int64(o.Removed)),
			humanize.Comma(int64(o.Skipped)),
			o.Duration.Round(time.Millisecond).String(),
		})
		tot.Scraped += o.Scraped
		tot.Inserted += o.Inserted + o.Restored
		tot.Updated += o.Updated
		tot.Removed += o.Removed
		tot.Skipped += o.Skipped
	}
	data = append(data, []string{
		"Total", "", fmt.Sprintf("%d/%d ok", rep.Succeeded(), len(rep.Outcomes)), "",
		humanize.Comma(int64(tot.Scraped)),
		humanize.Comma(int64(tot.Inserted)),
		humanize.Comma(int64(tot.Updated)),
		humanize.Comma(int64(tot.Removed)),
		humanize.Comma(int64(tot.Skipped)),
		rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond).String(),
	})
	return data
}

// printReport writes the -once summary followed by the errors of failed
// companies.
func printReport(w io.Writer, rep domain.Report, now time.Time) {
	fmt.Fprintf(w, "run %s finished %s\n", rep.RunID, humanize.RelTime(rep.FinishedAt, now, "ago", "from now"))

	table, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(reportTable(rep)).Srender()
	if err != nil {
		fmt.Fprintf(w, "render report: %v\n", err)
		return
	}
	fmt.Fprintln(w, table)

	for _, o := range rep.Outcomes {
		if !o.OK {
			fmt.Fprintf(w, "%s: %s\n", o.CompanyName, o.Error)
		}
	}
}
