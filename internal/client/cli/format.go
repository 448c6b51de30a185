package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/echolater/internal/rpcapi"
)

const (
	timeLayout    = "2006-01-02 15:04"
	maxPreviewLen = 48
)

func formatDue(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timeLayout)
}

func doneMark(done bool) string {
	if done {
		return "x"
	}
	return " "
}

// preview shortens s to maxPreviewLen runes on one line.
func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxPreviewLen {
		return s
	}
	return string(r[:maxPreviewLen-1]) + "…"
}

// printIdea writes the full idea, including its transcription.
func printIdea(w io.Writer, i *rpcapi.Idea) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", i.ID)
	fmt.Fprintf(tw, "Category:\t%s\n", i.TimeCategory)
	fmt.Fprintf(tw, "Due:\t%s\n", formatDue(i.ExtractedTime))
	fmt.Fprintf(tw, "Done:\t[%s]\n", doneMark(i.IsCompleted))
	if len(i.Tags) > 0 {
		fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(i.Tags, ", "))
	}
	if i.AudioURL != "" {
		fmt.Fprintf(tw, "Audio:\t%ds\n", i.AudioDuration)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", i.CreatedAt.Format(timeLayout))
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%s\n", i.Transcription)
}

// printIdeaList writes one line per idea followed by the page position.
func printIdeaList(w io.Writer, resp *rpcapi.ListIdeasResponse) {
	if len(resp.Ideas) == 0 {
		fmt.Fprintln(w, "No ideas.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tDUE\tDONE\tTEXT")
	for _, i := range resp.Ideas {
		fmt.Fprintf(tw, "%s\t%s\t%s\t[%s]\t%s\n",
			i.ID, i.TimeCategory, formatDue(i.ExtractedTime), doneMark(i.IsCompleted), preview(i.Transcription))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "page %d/%d, %d ideas\n", resp.Page, max(resp.TotalPages, 1), resp.Total)
}
