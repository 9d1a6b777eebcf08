package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"parsons-cli/internal/auditlog"
	"parsons-cli/internal/store"

	"github.com/spf13/cobra"
)

type logResult []auditlog.Entry

func (r logResult) Text() string {
	var b strings.Builder
	for _, e := range r {
		data, _ := json.Marshal(e.Data)
		ts := "-"
		if !e.Timestamp.IsZero() {
			ts = e.Timestamp.Format(time.RFC3339Nano)
		}
		tag := e.Tag
		if tag == "" {
			tag = "(raw)"
		}
		fmt.Fprintf(&b, "%s  %-13s %s\n", ts, tag, data)
	}
	return b.String()
}

type mirrorResult []store.MirroredEntry

func (r mirrorResult) Text() string {
	var b strings.Builder
	for _, e := range r {
		fmt.Fprintf(&b, "%4d  %s  %s  %-13s %s\n", e.Seq, e.Timestamp.Format(time.RFC3339Nano), e.SessionID, e.Tag, e.Data)
	}
	return b.String()
}

func newLogCmd(app *App) *cobra.Command {
	var (
		mirror    bool
		sessionID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "log <exercise>",
		Short: "Print the interaction log (oldest-first)",
		Long: strings.TrimSpace(`
Prints the log slot as stored. With --mirror, reads the backend's append-only copy instead
(sqlite: log_entries table, file: events.jsonl), which keeps the session id of every entry.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx, app, args[0], false)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer ws.Close()

			if mirror {
				if ws.st.Reader == nil {
					return writeErr(cmd, fmt.Errorf("the %s backend keeps no log mirror", ws.cfg.Storage.Backend))
				}
				es, err := ws.st.Reader.Entries(ctx, sessionID, limit)
				if err != nil {
					return writeErr(cmd, err)
				}
				if es == nil {
					es = []store.MirroredEntry{}
				}
				return writeOut(cmd, app, envelope{Data: mirrorResult(es)})
			}

			v, _, err := ws.sinks().Log.Get(ctx)
			if err != nil && !errors.Is(err, store.ErrSlotMissing) {
				return writeErr(cmd, err)
			}
			es := auditlog.Decode(v)
			if limit > 0 && len(es) > limit {
				es = es[:limit]
			}
			return writeOut(cmd, app, envelope{Data: logResult(es)})
		},
	}
	cmd.Flags().BoolVar(&mirror, "mirror", false, "Read the backend's append-only mirror instead of the log slot")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only entries of this session (with --mirror)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max entries to return (0 = all)")
	return cmd
}
