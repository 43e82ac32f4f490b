package summary

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"medqueue/internal/tokens/clock"
	tokenserrors "medqueue/internal/tokens/errors"
	"medqueue/internal/tokens/events"
	"medqueue/internal/tokens/repository"
	"medqueue/pkg/logger"
	"medqueue/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingLedger struct {
	repository.TokenLedger
}

func (failingLedger) FindToday(ctx context.Context, day model.DayKey) (*model.TokenLedgerEntry, error) {
	return nil, fmt.Errorf("%w: no reachable servers", tokenserrors.ErrStorageUnavailable)
}

func newCloser(t *testing.T, ledger repository.TokenLedger, rec *events.Recorder) *DayCloser {
	t.Helper()
	now := time.Date(2026, 10, 20, 1, 0, 0, 0, time.UTC)
	clk, err := clock.New(time.UTC, 1, clock.WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	closer, err := NewDayCloser(Dependencies{
		Ledger:      ledger,
		Clock:       clk,
		Events:      rec,
		CutoverHour: 1,
		Log:         logger.Discard(),
	})
	require.NoError(t, err)
	return closer
}

func TestCloseDay_PublishesFinalSequence(t *testing.T) {
	dir := repository.NewMemoryDirectory()
	ledger := repository.NewMemoryTokenLedger(dir.Doctors(), dir.Departments())
	ctx := context.Background()

	entry, err := ledger.CreateToday(ctx, repository.CreateRequest{DayKey: "2026-10-19", DepartmentID: "d", PatientID: "p1"})
	require.NoError(t, err)
	for _, pid := range []string{"p2", "p3"} {
		entry, err = ledger.IncrementToday(ctx, entry, repository.IssueRequest{PatientID: pid})
		require.NoError(t, err)
	}

	rec := &events.Recorder{}
	closer := newCloser(t, ledger, rec)

	closer.run()

	_, _, closed := rec.Snapshot()
	require.Len(t, closed, 1)
	assert.Equal(t, model.DayKey("2026-10-19"), closed[0].DayKey)
	assert.Equal(t, 3, closed[0].FinalSequence)
	assert.Equal(t, 3, closed[0].TicketsIssued)
	assert.Equal(t, entry.ID, closed[0].LedgerID)
	assert.Equal(t, entry.Token, closed[0].Token)
}

func TestCloseDay_EmptyDay(t *testing.T) {
	dir := repository.NewMemoryDirectory()
	rec := &events.Recorder{}
	closer := newCloser(t, repository.NewMemoryTokenLedger(dir.Doctors(), dir.Departments()), rec)

	event, err := closer.CloseDay(context.Background(), "2026-10-19")
	require.NoError(t, err)
	assert.Zero(t, event.FinalSequence)
	assert.Empty(t, event.LedgerID)
}

func TestCloseDay_Errors(t *testing.T) {
	rec := &events.Recorder{}
	closer := newCloser(t, failingLedger{}, rec)

	_, err := closer.CloseDay(context.Background(), "2026-10-19")
	assert.ErrorIs(t, err, tokenserrors.ErrStorageUnavailable)

	dir := repository.NewMemoryDirectory()
	rec.Err = errors.New("broker down")
	closer = newCloser(t, repository.NewMemoryTokenLedger(dir.Doctors(), dir.Departments()), rec)
	_, err = closer.CloseDay(context.Background(), "2026-10-19")
	assert.ErrorContains(t, err, "broker down")
}

func TestNewDayCloser_RejectsBadHour(t *testing.T) {
	_, err := NewDayCloser(Dependencies{CutoverHour: 24, Log: logger.Discard()})
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	dir := repository.NewMemoryDirectory()
	closer := newCloser(t, repository.NewMemoryTokenLedger(dir.Doctors(), dir.Departments()), &events.Recorder{})

	require.NoError(t, closer.Start())
	assert.Len(t, closer.cron.Entries(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	closer.Stop(ctx)
}
