package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/calslot/internal/availability"
	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/google"
	"github.com/teemow/calslot/internal/logging"
	"github.com/teemow/calslot/internal/tools/calendar_tools"
)

// addSourceFlags adds the flags selecting and configuring the calendar source.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", calendar.SourceGoogle, "Calendar source: google or ics")
	cmd.Flags().String("calendar-id", "primary", "Google calendar ID")
	cmd.Flags().String("ics-url", "", "iCalendar feed URL (for the ics source)")
	cmd.Flags().String("owner-email", "", "Your address in the iCalendar feed, to recognize declined and pending invitations")
	cmd.Flags().String("timezone", "", "Reference time zone, e.g. Europe/Berlin (default: the calendar's time zone)")
	cmd.Flags().String("token-dir", "", "Directory holding Google OAuth tokens")
	cmd.Flags().String("cache", CacheNone, "Event cache: none, memory or redis")
	cmd.Flags().Duration("cache-ttl", 2*time.Minute, "How long fetched events are cached")
	cmd.Flags().String("redis-url", "", "Redis URL for the redis cache, e.g. redis://localhost:6379/0")
}

// queryRunner carries what the one-shot commands share.
type queryRunner struct {
	cfg     Config
	account string
	out     io.Writer
	now     func() time.Time
}

func newQueryRunner(cmd *cobra.Command, account string) (*queryRunner, error) {
	cfg, err := loadConfig(cmd.Flags(), configFile)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		slog.SetDefault(logging.NewLogger(os.Stderr, true))
	}
	return &queryRunner{cfg: cfg, account: account, out: cmd.OutOrStdout(), now: time.Now}, nil
}

// withSource opens the account's calendar source and calls fn with it.
func (q *queryRunner) withSource(ctx context.Context, fn func(calendar.Source) error) error {
	sources, err := newSourceBuilder(ctx, q.cfg, nil, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = sources.close() }()

	src, err := sources.build(ctx, q.account)
	if errors.Is(err, google.ErrNoToken) {
		return errors.New(google.GetAuthenticationErrorMessage(q.account))
	}
	if err != nil {
		return fmt.Errorf("failed to open calendar for account %s: %w", q.account, err)
	}
	return fn(src)
}

func (q *queryRunner) slots(ctx context.Context, format string) error {
	if format != calendar_tools.FormatText && format != calendar_tools.FormatICS {
		return fmt.Errorf("format must be %q or %q, got %q", calendar_tools.FormatText, calendar_tools.FormatICS, format)
	}
	params := q.cfg.SearchDefaults()

	return q.withSource(ctx, func(src calendar.Source) error {
		now := q.now()
		slots, err := calendar.FindFreeSlots(ctx, src, now, params, nil)
		if err != nil {
			return err
		}
		if len(slots) == 0 || format == calendar_tools.FormatText {
			_, err = io.WriteString(q.out, calendar_tools.FormatSlots(slots, params))
			return err
		}
		doc, err := calendar.EncodeSlotsICS(slots, "", now)
		if err != nil {
			return err
		}
		_, err = q.out.Write(doc)
		return err
	})
}

func (q *queryRunner) today(ctx context.Context) error {
	return q.withSource(ctx, func(src calendar.Source) error {
		now := q.now().In(src.Location())
		events, err := calendar.Today(ctx, src, now)
		if err != nil {
			return err
		}
		_, err = io.WriteString(q.out, calendar_tools.FormatEvents(calendar_tools.DayHeading("Today", now), events))
		return err
	})
}

func (q *queryRunner) week(ctx context.Context) error {
	return q.withSource(ctx, func(src calendar.Source) error {
		now := q.now().In(src.Location())
		events, err := calendar.ThisWeek(ctx, src, now)
		if err != nil {
			return err
		}
		monday, _ := calendar.WeekRange(now)
		_, err = io.WriteString(q.out, calendar_tools.FormatEvents(calendar_tools.DayHeading("Week of", monday), events))
		return err
	})
}

func (q *queryRunner) invitations(ctx context.Context, days int) error {
	return q.withSource(ctx, func(src calendar.Source) error {
		events, err := calendar.PendingInvitations(ctx, src, q.now(), days)
		if err != nil {
			return err
		}
		heading := fmt.Sprintf("Pending invitations in the next %d day(s)", days)
		_, err = io.WriteString(q.out, calendar_tools.FormatEvents(heading, events))
		return err
	})
}

func newSlotsCmd() *cobra.Command {
	var (
		account string
		format  string
	)
	defaults := availability.DefaultSearchParameters()

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Find free slots in your calendar",
		Long: fmt.Sprintf(`Find up to %d free slots of the given length on weekdays within working
hours, starting now. Each slot starts at the beginning of a gap between
busy events.`, availability.MaxSlots),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := newQueryRunner(cmd, account)
			if err != nil {
				return err
			}
			return q.slots(cmd.Context(), format)
		},
	}

	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name to use")
	cmd.Flags().StringVar(&format, "format", calendar_tools.FormatText, "Output format: text or ics")
	cmd.Flags().Int("duration", defaults.DurationMinutes, "Slot length in minutes")
	cmd.Flags().Int("days", defaults.SearchDays, "Number of calendar days to search including today")
	cmd.Flags().Int("start", defaults.WorkingHoursStart, "First working hour of the day")
	cmd.Flags().Int("end", defaults.WorkingHoursEnd, "Hour the working day ends")
	cmd.Flags().Bool("debug", false, "Enable debug logging")
	addSourceFlags(cmd)
	return cmd
}

func newTodayCmd() *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "today",
		Short: "List today's events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := newQueryRunner(cmd, account)
			if err != nil {
				return err
			}
			return q.today(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name to use")
	addSourceFlags(cmd)
	return cmd
}

func newWeekCmd() *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "week",
		Short: "List this week's events, Monday to Sunday",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := newQueryRunner(cmd, account)
			if err != nil {
				return err
			}
			return q.week(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name to use")
	addSourceFlags(cmd)
	return cmd
}

func newInvitationsCmd() *cobra.Command {
	var (
		account string
		days    int
	)
	cmd := &cobra.Command{
		Use:   "invitations",
		Short: "List upcoming invitations you have not responded to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 1 || days > 90 {
				return fmt.Errorf("lookahead-days must be between 1 and 90, got %d", days)
			}
			q, err := newQueryRunner(cmd, account)
			if err != nil {
				return err
			}
			return q.invitations(cmd.Context(), days)
		},
	}
	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name to use")
	cmd.Flags().IntVar(&days, "lookahead-days", 14, "Number of days to look ahead")
	addSourceFlags(cmd)
	return cmd
}
