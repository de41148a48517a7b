package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/drcal/internal/calclient"
	"github.com/okian/drcal/internal/domain/model"
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid event id %q", arg)
	}
	return id, nil
}

func printEvents(w io.Writer, events []model.Event) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTART\tEND\tTITLE")
	for _, ev := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", ev.ID, ev.Kind, ev.Start, ev.End, ev.Title)
	}
	return tw.Flush()
}

func printEvent(w io.Writer, ev model.Event) {
	fmt.Fprintf(w, "ID:          %d\n", ev.ID)
	fmt.Fprintf(w, "Title:       %s\n", ev.Title)
	fmt.Fprintf(w, "Type:        %s\n", ev.Kind)
	fmt.Fprintf(w, "Start:       %s\n", ev.Start)
	fmt.Fprintf(w, "End:         %s\n", ev.End)
	fmt.Fprintf(w, "Description: %s\n", ev.Description)
}

// explain renders validation messages one per line; other errors pass through.
func explain(cmd *cobra.Command, err error) error {
	if msgs := calclient.ValidationErrors(err); len(msgs) > 0 {
		for _, m := range msgs {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %s\n", m)
		}
	}
	return err
}

func newListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every scheduled DR test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := opts.client().ListEvents(cmd.Context())
			if err != nil {
				return err
			}
			return printEvents(cmd.OutOrStdout(), events)
		},
	}
}

func newGetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one DR test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ev, err := opts.client().GetEvent(cmd.Context(), id)
			if err != nil {
				return err
			}
			printEvent(cmd.OutOrStdout(), ev)
			return nil
		},
	}
}

func newCreateCommand(opts *globalOptions) *cobra.Command {
	var title, start, end, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a manual DR test from explicit start and end times",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := opts.client().CreateEvent(cmd.Context(), model.Fields{
				model.FieldScheduleType: string(model.KindManual),
				model.FieldTitle:        title,
				model.FieldStart:        start,
				model.FieldEnd:          end,
				model.FieldDescription:  description,
			})
			if err != nil {
				return explain(cmd, err)
			}
			printEvent(cmd.OutOrStdout(), ev)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "test name")
	cmd.Flags().StringVar(&start, "start", "", "start time, "+model.TimeLayout)
	cmd.Flags().StringVar(&end, "end", "", "end time, "+model.TimeLayout)
	cmd.Flags().StringVar(&description, "description", "", "scope and objectives")
	return cmd
}

func newScheduleCommand(opts *globalOptions) *cobra.Command {
	var title, start, description string
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a manual DR test from a start time and duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := time.ParseInLocation(model.TimeLayout, start, time.Local)
			if err != nil {
				return fmt.Errorf("invalid --start %q: want %s", start, model.TimeLayout)
			}
			ev, err := opts.client().ScheduleDRTest(cmd.Context(), title, at, duration, description)
			if err != nil {
				return explain(cmd, err)
			}
			printEvent(cmd.OutOrStdout(), ev)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "test name")
	cmd.Flags().StringVar(&start, "start", "", "start time, "+model.TimeLayout)
	cmd.Flags().DurationVar(&duration, "duration", 2*time.Hour, "test length")
	cmd.Flags().StringVar(&description, "description", "", "scope and objectives (derived from the title when empty)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newAutoCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Auto-schedule a DR test seven weeks out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := opts.client().AutoSchedule(cmd.Context())
			if err != nil {
				return err
			}
			printEvent(cmd.OutOrStdout(), ev)
			return nil
		},
	}
}

func newUpdateCommand(opts *globalOptions) *cobra.Command {
	var title, start, end, description string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change some fields of a DR test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			fields := model.Fields{}
			for name, val := range map[string]string{
				model.FieldTitle:       title,
				model.FieldStart:       start,
				model.FieldEnd:         end,
				model.FieldDescription: description,
			} {
				if cmd.Flags().Changed(name) {
					fields[name] = val
				}
			}
			if len(fields) == 0 {
				return fmt.Errorf("nothing to update: pass at least one of --title, --start, --end, --description")
			}
			ev, err := opts.client().UpdateEvent(cmd.Context(), id, fields)
			if err != nil {
				return explain(cmd, err)
			}
			printEvent(cmd.OutOrStdout(), ev)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, model.FieldTitle, "", "new test name")
	cmd.Flags().StringVar(&start, model.FieldStart, "", "new start time, "+model.TimeLayout)
	cmd.Flags().StringVar(&end, model.FieldEnd, "", "new end time, "+model.TimeLayout)
	cmd.Flags().StringVar(&description, model.FieldDescription, "", "new description")
	return cmd
}

func newDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a DR test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := opts.client().DeleteEvent(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted event %d\n", id)
			return nil
		},
	}
}

func newUpcomingCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upcoming",
		Short: "List DR tests that have not started yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := opts.client().ListEvents(cmd.Context())
			if err != nil {
				return err
			}
			upcoming, _ := calclient.Split(events, time.Now())
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTART\tDAYS\tTITLE")
			for _, u := range upcoming {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", u.ID, u.Start, u.DaysUntil, u.Title)
			}
			return tw.Flush()
		},
	}
}
