package display

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/grovetools/agentevents/internal/session"
	"github.com/grovetools/agentevents/internal/transcript"
)

// PrintEventSummaryTable prints per-type event counts for a normalized stream.
func PrintEventSummaryTable(stats transcript.Stats, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "EVENT TYPE\tCOUNT")
	total := 0
	for _, t := range transcript.EventTypes {
		n := stats.Counts[t]
		total += n
		fmt.Fprintf(w, "%s\t%d\n", t, n)
	}
	fmt.Fprintf(w, "TOTAL\t%d\n", total)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "LINES\t%d\n", stats.Lines)
	fmt.Fprintf(w, "RESPONSES\t%d\n", stats.Responses)
	return w.Flush()
}

// PrintLogsTable prints a list of agent logs in a formatted table.
func PrintLogsTable(logs []session.LogFile, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "SESSION ID\tPROVIDER\tCWD\tSTARTED\tPATH")
	for _, l := range logs {
		cwd := l.Cwd
		if cwd == "" {
			cwd = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			l.SessionID, l.Provider, shortenPath(cwd),
			l.StartedAt.Format("2006-01-02 15:04"), l.Path)
	}
	return w.Flush()
}
