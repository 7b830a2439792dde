package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/debugconsole/internal/client"
	"github.com/telhawk-systems/debugconsole/internal/models"
	"github.com/telhawk-systems/debugconsole/internal/output"
)

func newRecordCmd(a *app) *cobra.Command {
	var req models.RecordEventRequest
	var payload string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a debug event",
		Example: `  debugctl record --type cache_miss --message "bank reloaded" --severity warning
  debugctl record --type import --message done --payload '{"rows": 120}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.EventType == "" || req.Message == "" {
				return errors.New("--type and --message are required")
			}
			if payload != "" {
				if err := json.Unmarshal([]byte(payload), &req.Payload); err != nil {
					return fmt.Errorf("invalid --payload: %w", err)
				}
			}

			event, err := a.client().RecordEvent(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to record event: %w", err)
			}

			out := cmd.OutOrStdout()
			if handled, err := output.Structured(out, a.format(), event.AsMap()); handled {
				return err
			}
			output.Success(out, "Recorded event %s", event.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.EventType, "type", "", "event type (max 64 characters)")
	f.StringVar(&req.Message, "message", "", "event message")
	f.StringVar(&req.Severity, "severity", "", "severity: info, success, warning, error")
	f.StringVar(&req.Source, "source", models.SourceBackend, "event source")
	f.StringVar(&payload, "payload", "", "JSON object attached to the event")
	f.StringVar(&req.OccurredAt, "occurred-at", "", "ISO 8601 time the event happened")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var opts client.ListOptions
	var since time.Duration

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recorded debug events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if since > 0 {
				opts.Since = time.Now().Add(-since)
			}

			list, err := a.client().ListEvents(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("failed to list events: %w", err)
			}

			out := cmd.OutOrStdout()
			items := make([]map[string]interface{}, 0, len(list.Events))
			for _, e := range list.Events {
				items = append(items, e.AsMap())
			}
			if handled, err := output.Structured(out, a.format(), items); handled {
				return err
			}

			if len(list.Events) == 0 {
				output.Info(out, "No events found")
				return nil
			}

			table := output.NewTable([]string{"ID", "Occurred", "Severity", "Source", "Type", "User", "Message"})
			for _, e := range list.Events {
				user := "-"
				if e.Username != nil {
					user = *e.Username
				}
				table.AddRow([]string{
					e.ID,
					e.OccurredAt.Format("2006-01-02 15:04:05"),
					output.Severity(e.Severity),
					e.Source,
					e.EventType,
					user,
					e.Message,
				})
			}
			table.Render(out)
			output.Info(out, "\nShowing %d of %d events (page %d of %d)", len(list.Events), list.Total, list.Page, list.TotalPages)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Severity, "severity", "", "filter by severity")
	f.StringVar(&opts.Source, "source", "", "filter by source")
	f.StringVar(&opts.EventType, "type", "", "filter by event type")
	f.DurationVar(&since, "since", 0, "only events from the last duration, e.g. 24h")
	f.IntVar(&opts.Page, "page", 1, "page number")
	f.IntVar(&opts.Limit, "limit", 50, "events per page")
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get [id]",
		Short: "Show one debug event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := a.client().GetEvent(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get event: %w", err)
			}

			out := cmd.OutOrStdout()
			if handled, err := output.Structured(out, a.format(), event.AsMap()); handled {
				return err
			}

			user := "-"
			if event.Username != nil {
				user = *event.Username
			}
			output.Info(out, "ID:         %s", event.ID)
			output.Info(out, "Type:       %s", event.EventType)
			output.Info(out, "Severity:   %s", output.Severity(event.Severity))
			output.Info(out, "Source:     %s", event.Source)
			output.Info(out, "User:       %s", user)
			output.Info(out, "Session:    %s", event.SessionKey)
			output.Info(out, "Occurred:   %s", event.OccurredAt.Format(time.RFC3339))
			output.Info(out, "Recorded:   %s", event.CreatedAt.Format(time.RFC3339))
			output.Info(out, "Message:    %s", event.Message)
			if len(event.Payload) > 0 {
				output.Info(out, "Payload:")
				return output.JSON(out, event.Payload)
			}
			return nil
		},
	}
}

func newPruneCmd(a *app) *cobra.Command {
	var olderThan time.Duration
	var before string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old debug events",
		Example: `  debugctl prune --older-than 720h
  debugctl prune --before 2025-01-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff := before
			switch {
			case before != "" && olderThan > 0:
				return errors.New("use either --older-than or --before, not both")
			case before != "":
				if _, err := time.Parse(time.RFC3339, before); err != nil {
					return fmt.Errorf("invalid --before: %w", err)
				}
			case olderThan > 0:
				cutoff = olderThan.String()
			default:
				return errors.New("one of --older-than or --before is required")
			}

			resp, err := a.client().PurgeEvents(cmd.Context(), cutoff)
			if err != nil {
				return fmt.Errorf("failed to prune events: %w", err)
			}

			out := cmd.OutOrStdout()
			if handled, err := output.Structured(out, a.format(), resp); handled {
				return err
			}
			if resp.Deleted == 0 {
				output.Warn(out, "No events recorded before %s", resp.Before)
				return nil
			}
			output.Success(out, "Deleted %d events recorded before %s", resp.Deleted, resp.Before)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "delete events older than this duration, e.g. 720h")
	cmd.Flags().StringVar(&before, "before", "", "delete events before this RFC 3339 time")
	return cmd
}
