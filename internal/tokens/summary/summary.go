// Package summary closes each business day once the cutover hour passes.
package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"medqueue/internal/tokens/clock"
	tokenserrors "medqueue/internal/tokens/errors"
	"medqueue/internal/tokens/events"
	"medqueue/internal/tokens/repository"
	"medqueue/pkg/logger"
	"medqueue/pkg/model"
)

const runTimeout = 30 * time.Second

type Dependencies struct {
	Ledger      repository.TokenLedger
	Clock       clock.Clock
	Events      events.Publisher
	Location    *time.Location
	CutoverHour int
	Log         *logger.Logger
}

// DayCloser publishes a ledger.day_closed event for the day that just ended.
type DayCloser struct {
	ledger   repository.TokenLedger
	clock    clock.Clock
	events   events.Publisher
	log      *logger.Logger
	schedule string
	cron     *cron.Cron
}

func NewDayCloser(deps Dependencies) (*DayCloser, error) {
	if deps.CutoverHour < 0 || deps.CutoverHour > 23 {
		return nil, fmt.Errorf("cutover hour must be between 0 and 23, got %d", deps.CutoverHour)
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	return &DayCloser{
		ledger:   deps.Ledger,
		clock:    deps.Clock,
		events:   deps.Events,
		log:      deps.Log,
		schedule: fmt.Sprintf("0 %d * * *", deps.CutoverHour),
		cron:     cron.New(cron.WithLocation(loc)),
	}, nil
}

// Start schedules the job at the cutover hour. It does not block.
func (d *DayCloser) Start() error {
	if _, err := d.cron.AddFunc(d.schedule, d.run); err != nil {
		return fmt.Errorf("failed to schedule day close job: %w", err)
	}
	d.cron.Start()
	d.log.Info("Day close job scheduled", "schedule", d.schedule)
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (d *DayCloser) Stop(ctx context.Context) {
	select {
	case <-d.cron.Stop().Done():
	case <-ctx.Done():
		d.log.Warn("Day close job did not stop in time")
	}
}

func (d *DayCloser) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	day := d.clock.Today().Prev()
	if _, err := d.CloseDay(ctx, day); err != nil {
		d.log.Error("Failed to close day", "day_key", day, "error", err)
	}
}

// CloseDay publishes the final numbers of day. A day without a ledger entry
// closes with zero tickets.
func (d *DayCloser) CloseDay(ctx context.Context, day model.DayKey) (*events.DayClosed, error) {
	event := events.DayClosed{
		DayKey:   day,
		ClosedAt: d.clock.Now().UTC(),
	}

	entry, err := d.ledger.FindToday(ctx, day)
	switch {
	case err == nil:
		event.LedgerID = entry.ID
		event.Token = entry.Token
		event.FinalSequence = entry.SequenceNumber
		event.TicketsIssued = len(entry.Issued)
	case errors.Is(err, tokenserrors.ErrNoLedger):
	default:
		return nil, err
	}

	if err := d.events.DayClosed(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to publish day closed event: %w", err)
	}

	d.log.Info("Day closed",
		"day_key", day,
		"final_sequence", event.FinalSequence,
		"tickets_issued", event.TicketsIssued,
	)
	return &event, nil
}
