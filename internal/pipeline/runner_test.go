package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	conf "github.com/bartek5186/catalog2dw/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a stage that appends its name to a shared trace.
type recorder struct {
	name    string
	trace   *[]string
	err     error
	started chan struct{}
	block   chan struct{}
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Run(ctx context.Context, ev *Event) error {
	if r.block != nil {
		close(r.started)
		<-r.block
	}
	*r.trace = append(*r.trace, r.name)
	ev.Loaded++
	return r.err
}

func testCfg() *conf.Config {
	cfg := &conf.Config{}
	cfg.Scraper.MaxPages = 200
	cfg.Sales.DayCount = 2
	cfg.Sales.MinTickets = 0
	cfg.Sales.MaxTickets = 10
	return cfg
}

func register(t *testing.T, st *recorder) {
	t.Helper()
	Register(st.name, func(Env) (Stage, error) { return st, nil })
}

func TestRunner_RunsStagesInOrder(t *testing.T) {
	var trace []string
	register(t, &recorder{name: "t-first", trace: &trace})
	register(t, &recorder{name: "t-second", trace: &trace})

	r := NewRunner(Env{Log: zerolog.Nop(), Cfg: testCfg()})
	ev := &Event{MaxSales: Int(3)}

	require.NoError(t, r.Run(context.Background(), ev, "t-first", "t-second"))

	assert.Equal(t, []string{"t-first", "t-second"}, trace)
	assert.Equal(t, 2, ev.Loaded)
	assert.NotEmpty(t, ev.RunID)
	assert.Equal(t, 200, ev.MaxPages)
	assert.Equal(t, 2, *ev.DayCount)
	assert.Equal(t, 0, *ev.MinSales)
	assert.Equal(t, 3, *ev.MaxSales, "explicit event values win over configuration")
}

func TestRunner_UnknownStageRunsNothing(t *testing.T) {
	var trace []string
	register(t, &recorder{name: "t-known", trace: &trace})

	r := NewRunner(Env{Log: zerolog.Nop(), Cfg: testCfg()})
	err := r.Run(context.Background(), &Event{}, "t-known", "t-missing")

	assert.ErrorIs(t, err, ErrUnknownStage)
	assert.Empty(t, trace)
}

func TestRunner_StopsAtFailingStage(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	register(t, &recorder{name: "t-fail", trace: &trace, err: boom})
	register(t, &recorder{name: "t-after", trace: &trace})

	r := NewRunner(Env{Log: zerolog.Nop(), Cfg: testCfg()})
	err := r.Run(context.Background(), &Event{}, "t-fail", "t-after")

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"t-fail"}, trace)
}

func TestRunner_KeepsGivenRunID(t *testing.T) {
	var trace []string
	register(t, &recorder{name: "t-id", trace: &trace})

	ev := &Event{RunID: "fixed"}
	require.NoError(t, NewRunner(Env{Log: zerolog.Nop(), Cfg: testCfg()}).Run(context.Background(), ev, "t-id"))
	assert.Equal(t, "fixed", ev.RunID)
}

func TestRunner_BusyWhileRunning(t *testing.T) {
	var trace []string
	started, block := make(chan struct{}), make(chan struct{})
	register(t, &recorder{name: "t-slow", trace: &trace, started: started, block: block})

	r := NewRunner(Env{Log: zerolog.Nop(), Cfg: testCfg()})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, r.Run(context.Background(), &Event{}, "t-slow"))
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first run did not start")
	}
	assert.ErrorIs(t, r.Run(context.Background(), &Event{}, "t-slow"), ErrBusy)

	close(block)
	wg.Wait()
	assert.Equal(t, []string{"t-slow"}, trace)
}

func TestNamesSorted(t *testing.T) {
	Register("t-zz", nil)
	Register("t-aa", nil)
	names := Names()
	assert.Contains(t, names, "t-aa")
	assert.IsIncreasing(t, names)
}
