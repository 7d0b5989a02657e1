package command

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tracks-academy/progress-ledger/internal/domain/learner"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
	"github.com/tracks-academy/progress-ledger/internal/infrastructure/persistence/memory"
	"github.com/tracks-academy/progress-ledger/pkg/logger"
)

// recordingBus keeps every published event.
type recordingBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *recordingBus) Publish(e shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) ofType(t shared.EventType) []shared.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []shared.Event
	for _, e := range b.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	db  *memory.DB
	bus *recordingBus
	log *logger.Logger
	now time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	db := memory.Open()
	db.SetClock(func() time.Time { return now })
	return &fixture{db: db, bus: &recordingBus{}, log: logger.Nop(), now: now}
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) addLearner(level shared.Level, xp int) string {
	return f.db.AddLearner(learner.Learner{FullName: "Learner", Level: level, XPTotal: shared.XP(xp)})
}

func (f *fixture) xp(t *testing.T, learnerID string) int {
	t.Helper()
	l, err := memory.NewLearnerRepository(f.db).GetByID(t.Context(), learnerID)
	require.NoError(t, err)
	return l.XPTotal.Int()
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }
