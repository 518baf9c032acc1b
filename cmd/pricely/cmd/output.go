package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	apiclient "github.com/donaldgifford/pricely/internal/api/client"
	domain "github.com/donaldgifford/pricely/pkg/types"
)

const timeLayout = "2006-01-02 15:04:05"

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printTrackerTable(w io.Writer, trackers []domain.Tracker) error {
	tw := newTabWriter(w)
	tw.writef("ID\tUSER\tTARGET\tINTERVAL\tACTIVE\tARMED\tLAST CHECKED\tLAST ERROR\n")
	for i := range trackers {
		t := &trackers[i]
		tw.writef("%s\t%s\t%s\t%s\t%v\t%v\t%s\t%s\n",
			t.ID,
			t.UserID,
			t.TargetPrice.StringFixed(2),
			t.CheckInterval,
			t.Active,
			t.Armed(),
			formatTime(t.LastCheckedAt),
			truncate(t.LastError, 40),
		)
	}
	return tw.finish()
}

func printTrackerDetail(w io.Writer, d *domain.TrackerDetail) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%s\n", d.ID)
	tw.writef("Product:\t%s\n", productName(&d.Product))
	tw.writef("URL:\t%s\n", d.Product.URL)
	tw.writef("Source:\t%s\n", d.Product.Website)
	tw.writef("Target:\t%s\n", d.TargetPrice.StringFixed(2))
	if d.Latest != nil {
		tw.writef("Latest:\t%s %s (%s)\n",
			d.Latest.Price.StringFixed(2), d.Latest.Currency, d.Latest.ObservedAt.Format(timeLayout))
	} else {
		tw.writef("Latest:\t-\n")
	}
	tw.writef("Interval:\t%s\n", d.CheckInterval)
	tw.writef("Active:\t%v\n", d.Active)
	tw.writef("Armed:\t%v\n", d.Armed())
	if d.LastNotifiedPrice != nil {
		tw.writef("Notified at:\t%s\n", d.LastNotifiedPrice.StringFixed(2))
	}
	tw.writef("Last checked:\t%s\n", formatTime(d.LastCheckedAt))
	if d.LastError != "" {
		tw.writef("Last error:\t%s\n", d.LastError)
	}
	return tw.finish()
}

func printHistoryTable(w io.Writer, obs []domain.PriceObservation) error {
	tw := newTabWriter(w)
	tw.writef("OBSERVED\tPRICE\tCURRENCY\tAVAILABLE\n")
	for i := range obs {
		o := &obs[i]
		tw.writef("%s\t%s\t%s\t%v\n",
			o.ObservedAt.Format(timeLayout),
			o.Price.StringFixed(2),
			o.Currency,
			o.Available,
		)
	}
	return tw.finish()
}

func printCheckResult(w io.Writer, id string, r *apiclient.CheckResult) error {
	tw := newTabWriter(w)
	tw.writef("Tracker:\t%s\n", id)
	tw.writef("Success:\t%v\n", r.Success)
	tw.writef("Outcome:\t%s\n", r.Outcome)
	if r.Price != nil {
		tw.writef("Price:\t%s %s\n", r.Price.StringFixed(2), r.Currency)
	}
	tw.writef("Notified:\t%v\n", r.Notified)
	if r.Error != "" {
		tw.writef("Error:\t%s\n", r.Error)
	}
	return tw.finish()
}

func printNotificationTable(w io.Writer, ns []domain.Notification) error {
	tw := newTabWriter(w)
	tw.writef("ID\tTRACKER\tCREATED\tREAD\tMESSAGE\n")
	for i := range ns {
		n := &ns[i]
		tw.writef("%s\t%s\t%s\t%v\t%s\n",
			n.ID,
			n.TrackerID,
			n.CreatedAt.Format(timeLayout),
			n.Read,
			truncate(firstLine(n.Message), 60),
		)
	}
	return tw.finish()
}

func printUserDetail(w io.Writer, u *domain.User) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%s\n", u.ID)
	tw.writef("Username:\t%s\n", u.Username)
	tw.writef("Email:\t%s\n", u.Email)
	tw.writef("Created:\t%s\n", u.CreatedAt.Format(timeLayout))
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(timeLayout)
}

func productName(p *domain.Product) string {
	if p.Name != "" {
		return p.Name
	}
	return p.URL
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// parsePrice validates a target price before it is sent to the server.
func parsePrice(s string) (string, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("invalid price %q", s)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("price must not be negative: %s", s)
	}
	return d.String(), nil
}
