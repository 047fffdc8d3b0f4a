package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nse-oi-tracker/internal/backfill"
	"nse-oi-tracker/internal/config"
	"nse-oi-tracker/internal/errors"
	"nse-oi-tracker/internal/models"
	"nse-oi-tracker/internal/provider"
	"nse-oi-tracker/internal/store"
	"nse-oi-tracker/pkg/utils"
)

var testNow = time.Date(2024, 1, 23, 9, 40, 0, 0, utils.IndiaLocation)

// downProvider fails every call with err.
type downProvider struct{ err error }

func (d downProvider) LookupSymbol(context.Context, models.Index) (string, error) {
	return "", d.err
}

func (d downProvider) Expiries(context.Context, string) ([]string, error) {
	return nil, d.err
}

func (d downProvider) FetchSnapshot(context.Context, string, string, string) ([]byte, error) {
	return nil, d.err
}

// gatedProvider blocks lookups until released.
type gatedProvider struct {
	provider.Provider
	entered chan struct{}
	release chan struct{}
}

func (g *gatedProvider) LookupSymbol(ctx context.Context, symbol models.Index) (string, error) {
	close(g.entered)
	<-g.release
	return g.Provider.LookupSymbol(ctx, symbol)
}

func newTestService(t *testing.T, p provider.Provider) (*Service, *store.SnapshotStore) {
	t.Helper()
	clock := func() time.Time { return testNow }
	if syn, ok := p.(*provider.Synthetic); ok {
		syn.WithClock(clock)
	}
	if g, ok := p.(*gatedProvider); ok {
		g.Provider.(*provider.Synthetic).WithClock(clock)
	}
	demo := provider.NewSynthetic().WithClock(clock)
	s := store.NewSnapshotStore(store.NewKVPersistence(store.NewMemoryKV(), "h"), zerolog.Nop())
	o := backfill.New(p, s, config.BackfillConfig{Start: "09:15", StepMinutes: 15, MaxAttempts: 1}, time.Second, zerolog.Nop()).WithClock(clock)
	svc := NewService(p, demo, s, o, time.Second, zerolog.Nop())
	svc.now = clock
	return svc, s
}

func TestRefreshRecordsLiveSnapshot(t *testing.T) {
	svc, s := newTestService(t, provider.NewSynthetic())
	ctx := context.Background()

	view, err := svc.Refresh(ctx, models.IndexNifty)
	require.NoError(t, err)
	assert.Equal(t, models.SourceLive, view.Source)
	assert.NotEmpty(t, view.Chain.Strikes)

	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Same(t, view, latest)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, view.Analysis.PCR, list[0].PCR)
	assert.Nil(t, list[0].PCRChangeOI)
}

func TestRefreshPropagatesProviderErrors(t *testing.T) {
	svc, _ := newTestService(t, downProvider{err: errors.NewProviderError("lookup", "NIFTY", 0, errors.ErrTransportFailure)})

	view, err := svc.Refresh(context.Background(), models.IndexNifty)
	assert.Nil(t, view)
	assert.True(t, errors.Is(err, errors.ErrTransportFailure))

	_, err = svc.Latest()
	assert.ErrorIs(t, err, errors.ErrNoSnapshot)
}

func TestLiveFallsBackToDemo(t *testing.T) {
	for _, cause := range []error{errors.ErrLookupFailure, errors.ErrMalformedPayload, errors.ErrTransportFailure} {
		svc, s := newTestService(t, downProvider{err: cause})

		view, err := svc.Live(context.Background(), models.IndexBankNifty)
		assert.ErrorIs(t, err, cause)
		require.NotNil(t, view)
		assert.Equal(t, models.SourceDemo, view.Source)
		assert.Equal(t, models.IndexBankNifty, view.Chain.Symbol)

		list, err := s.List(context.Background())
		require.NoError(t, err)
		assert.Empty(t, list, "demo views are never recorded")
	}
}

func TestLiveDoesNotMaskCancellation(t *testing.T) {
	svc, _ := newTestService(t, downProvider{err: context.Canceled})
	view, err := svc.Live(context.Background(), models.IndexNifty)
	assert.Nil(t, view)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStartBackfillUpdatesLatest(t *testing.T) {
	svc, _ := newTestService(t, provider.NewSynthetic())
	ctx := context.Background()

	var messages []string
	res, err := svc.StartBackfill(ctx, models.IndexNifty, func(p backfill.Progress) { messages = append(messages, p.Message) })
	require.NoError(t, err)
	assert.NotEmpty(t, messages)
	assert.False(t, svc.BackfillRunning())

	require.NotNil(t, res.Live)
	latest, err := svc.Latest()
	require.NoError(t, err)
	assert.Equal(t, models.SourceBackfill, latest.Source)

	history := svc.History(ctx)
	assert.Len(t, history, len(res.Summaries))
	for _, h := range history {
		assert.NotNil(t, h.PCRChangeOI)
	}
}

func TestStartBackfillRejectsConcurrentRun(t *testing.T) {
	gate := &gatedProvider{Provider: provider.NewSynthetic(), entered: make(chan struct{}), release: make(chan struct{})}
	svc, _ := newTestService(t, gate)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := svc.StartBackfill(ctx, models.IndexNifty, nil)
		assert.NoError(t, err)
	}()

	<-gate.entered
	assert.True(t, svc.BackfillRunning())
	_, err := svc.StartBackfill(ctx, models.IndexNifty, nil)
	assert.ErrorIs(t, err, errors.ErrBackfillRunning)

	close(gate.release)
	wg.Wait()
	assert.False(t, svc.BackfillRunning())
}

func TestClearHistory(t *testing.T) {
	svc, _ := newTestService(t, provider.NewSynthetic())
	ctx := context.Background()

	_, err := svc.Refresh(ctx, models.IndexNifty)
	require.NoError(t, err)
	require.Len(t, svc.History(ctx), 1)

	require.NoError(t, svc.ClearHistory(ctx))
	assert.Empty(t, svc.History(ctx))
}

func TestExport(t *testing.T) {
	svc, _ := newTestService(t, provider.NewSynthetic())

	var buf bytes.Buffer
	assert.ErrorIs(t, svc.Export(&buf, FormatJSON), errors.ErrNoSnapshot)

	view := svc.Demo(models.IndexNifty)

	buf.Reset()
	require.NoError(t, svc.Export(&buf, FormatJSON))
	var doc ExportDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, models.SourceDemo, doc.Source)
	assert.Equal(t, view.Analysis.MaxPain, doc.Analysis.MaxPain)
	assert.Len(t, doc.Strikes, len(view.Chain.Strikes))

	buf.Reset()
	require.NoError(t, svc.Export(&buf, FormatCSV))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(view.Chain.Strikes)+1)
	assert.Equal(t, "strike,expiry,call_oi,call_change_oi,call_volume,call_ltp,put_oi,put_change_oi,put_volume,put_ltp", lines[0])

	assert.Error(t, svc.Export(&buf, "xml"))
	assert.Equal(t, "nifty-20240123-0940.csv", svc.ExportFilename(FormatCSV))
}

func TestRowsHandlesMissingLegs(t *testing.T) {
	chain := models.NewOptionChain(models.IndexNifty, 22000, testNow, nil, []models.StrikeRecord{
		{Strike: 22000, Call: &models.OptionLeg{OI: 10, LTP: 5.5}},
		{Strike: 22050, Put: &models.OptionLeg{OI: 7}},
	})
	rows := Rows(chain)
	require.Len(t, rows, 2)
	assert.Equal(t, StrikeRow{Strike: 22000, CallOI: 10, CallLTP: 5.5}, rows[0])
	assert.Equal(t, StrikeRow{Strike: 22050, PutOI: 7}, rows[1])
}
