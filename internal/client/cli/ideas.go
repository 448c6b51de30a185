package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/echolater/internal/client/services"
)

// sessionRunE restores the saved login before running fn.
func sessionRunE(app func() *App, fn func(cmd *cobra.Command, a *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a := app()
		if a == nil {
			return errNoApp
		}
		if err := a.requireSession(cmd.Context()); err != nil {
			return err
		}
		return fn(cmd, a, args)
	}
}

// recordCmd builds "record", which uploads an audio file as a new idea.
func recordCmd(app func() *App) *cobra.Command {
	var (
		note     string
		duration int
	)

	cmd := &cobra.Command{
		Use:   "record <audio-file>",
		Short: "Upload a voice memo; it is transcribed and filed by date",
		Long: `Upload a recording (webm, m4a/mp4, mp3, wav, ogg, up to 50 MB).

The server transcribes it, looks for a date ("tomorrow", "下周", "3月5日", ...)
and files the idea under today, thisWeek, future or inbox. With --note the
given text is used instead of the transcription.`,
		Args: cobra.ExactArgs(1),
		RunE: sessionRunE(app, func(cmd *cobra.Command, a *App, args []string) error {
			idea, err := a.ideaService.Record(cmd.Context(), args[0], note, duration)
			if err != nil {
				return err
			}
			printIdea(a.out, idea)
			return nil
		}),
	}
	cmd.Flags().StringVar(&note, "note", "", "text to use instead of the transcription")
	cmd.Flags().IntVar(&duration, "duration", 0, "recording length in seconds")
	return cmd
}

// noteCmd builds "note". All arguments are joined with spaces into one text.
func noteCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "note <text>",
		Short: "File a text idea",
		Args:  cobra.MinimumNArgs(1),
		RunE: sessionRunE(app, func(cmd *cobra.Command, a *App, args []string) error {
			idea, err := a.ideaService.Note(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			printIdea(a.out, idea)
			return nil
		}),
	}
}

// listCmd builds "list". --status is mapped onto the completed filter: "open"
// and "done" select one side, "all" leaves it unset.
func listCmd(app func() *App) *cobra.Command {
	var (
		opts   services.ListOptions
		status string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "l"},
		Short:   "List ideas, newest first",
		Args:    cobra.NoArgs,
		RunE: sessionRunE(app, func(cmd *cobra.Command, a *App, _ []string) error {
			switch status {
			case "", "all":
				opts.Completed = nil
			case "open":
				v := false
				opts.Completed = &v
			case "done":
				v := true
				opts.Completed = &v
			default:
				return fmt.Errorf("unknown status %q, want all, open or done", status)
			}

			resp, err := a.ideaService.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			printIdeaList(a.out, resp)
			return nil
		}),
	}

	fl := cmd.Flags()
	fl.StringVar(&opts.Category, "category", "", "today, thisWeek, future or inbox")
	fl.StringVar(&opts.Search, "search", "", "only ideas whose text contains this")
	fl.IntVar(&opts.Page, "page", 1, "page number")
	fl.IntVar(&opts.Limit, "limit", 20, "ideas per page (max 100)")
	fl.StringVar(&status, "status", "all", "all, open or done")
	return cmd
}

// showCmd builds "show", which prints one idea with its transcription.
func showCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one idea",
		Args:  cobra.ExactArgs(1),
		RunE: sessionRunE(app, func(cmd *cobra.Command, a *App, args []string) error {
			idea, err := a.ideaService.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printIdea(a.out, idea)
			return nil
		}),
	}
}

// doneCmd builds "done" and its --undo counterpart.
func doneCmd(app func() *App) *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark an idea as completed",
		Args:  cobra.ExactArgs(1),
		RunE: sessionRunE(app, func(cmd *cobra.Command, a *App, args []string) error {
			idea, err := a.ideaService.SetCompleted(cmd.Context(), args[0], !undo)
			if err != nil {
				return err
			}
			printIdea(a.out, idea)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "reopen a completed idea")
	return cmd
}

// rmCmd builds "rm". Without --yes it asks for confirmation and treats any
// answer other than "y" as a cancel.
func rmCmd(app func() *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an idea and its recording",
		Args:    cobra.ExactArgs(1),
		RunE: sessionRunE(app, func(cmd *cobra.Command, a *App, args []string) error {
			if !yes {
				answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete idea %s? (y/N)", args[0]), a.out)
				if err != nil || !strings.EqualFold(answer, "y") {
					a.printf("Operation canceled.\n")
					return nil
				}
			}
			if err := a.ideaService.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("Deleted %s\n", args[0])
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// audioCmd builds "audio", which streams the recording into --output. A partial
// file is removed when the download fails.
func audioCmd(app func() *App) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "audio <id>",
		Short: "Download the recording of an idea",
		Args:  cobra.ExactArgs(1),
		RunE: sessionRunE(app, func(cmd *cobra.Command, a *App, args []string) error {
			if output == "" {
				return fmt.Errorf("--output is required")
			}
			f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return err
			}
			n, err := a.ideaService.DownloadAudio(cmd.Context(), args[0], f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(output)
				return err
			}
			a.printf("Saved %d bytes to %s\n", n, output)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write")
	return cmd
}
