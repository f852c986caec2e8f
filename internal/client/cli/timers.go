package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/services"
)

// Start begins a timer. The description is taken from args or prompted for.
func (a *App) Start(ctx context.Context, args []string) error {
	desc := strings.TrimSpace(strings.Join(args, " "))
	if desc == "" {
		var err error
		if desc, err = getSimpleText(a.reader, "Enter description", a.out); err != nil {
			return err
		}
	}

	t, err := a.timerService.Start(ctx, desc)
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "Started timer #%d: %s\n", t.ID, t.Description)
	return nil
}

// Stop ends the timer whose id is given in args or prompted for.
func (a *App) Stop(ctx context.Context, args []string) error {
	raw := ""
	if len(args) > 0 {
		raw = args[0]
	} else {
		var err error
		if raw, err = getSimpleText(a.reader, "Enter timer id", a.out); err != nil {
			return err
		}
	}

	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		fmt.Fprintln(a.out, "Usage: stop <id>")
		return fmt.Errorf("invalid timer id %q", raw)
	}

	if err := a.timerService.Stop(ctx, id); err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "Stopped timer #%d\n", id)
	return nil
}

// Status prints the active timers, or every timer with "status old".
func (a *App) Status(ctx context.Context, args []string) error {
	old := len(args) > 0 && args[0] == "old"

	var (
		v   services.View
		err error
	)
	if old {
		v, err = a.timerService.All(ctx)
	} else {
		v, err = a.timerService.Active(ctx)
	}
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintln(a.out, renderTimers(v.Timers, old, time.Now()))
	fmt.Fprintln(a.out, describeSource(v))
	return nil
}

// Export asks the server for a history export and prints its link. With a
// path argument the export is also downloaded there.
func (a *App) Export(ctx context.Context, args []string) error {
	e, err := a.timerService.Export(ctx)
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "Exported %d timers (%d bytes)\n", e.Timers, e.Size)
	fmt.Fprintf(a.out, "Link (valid until %s):\n%s\n", e.ExpiresAt.Local().Format(time.DateTime), e.URL)

	if len(args) == 0 {
		return nil
	}
	if err := a.timerService.SaveExport(ctx, e, args[0]); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Saved to", args[0])
	return nil
}

func describeSource(v services.View) string {
	switch v.Source {
	case services.SourceLive:
		return "(live)"
	case services.SourceCache:
		return fmt.Sprintf("(offline: cached at %s)", v.AsOf.Local().Format(time.DateTime))
	default:
		return "(from server)"
	}
}
