package shared

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXPApply_ClampsAtZero(t *testing.T) {
	tests := []struct {
		name        string
		balance     XP
		delta       int
		wantBalance XP
		wantApplied int
	}{
		{"credit", 10, 5, 15, 5},
		{"debit within balance", 10, -4, 6, -4},
		{"debit to exactly zero", 10, -10, 0, -10},
		{"debit below zero", 3, -10, 0, -3},
		{"debit from zero", 0, -7, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, applied := tt.balance.Apply(tt.delta)
			assert.Equal(t, tt.wantBalance, got)
			assert.Equal(t, tt.wantApplied, applied)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("learner_id", "  6F9619FF-8B86-D011-B42D-00C04FC964FF ")
	require.NoError(t, err)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", id)

	_, err = ParseID("learner_id", "42")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "learner_id must be a UUID")
}

func TestParseCheckinTrack(t *testing.T) {
	for _, raw := range []string{"data", "LANG", " soft "} {
		_, err := ParseCheckinTrack(raw)
		assert.NoError(t, err, raw)
	}

	tr, _ := ParseCheckinTrack("lang")
	assert.Equal(t, "lang_task", tr.Column())

	_, err := ParseCheckinTrack("english")
	assert.True(t, IsValidation(err))
}

func TestLocalDate(t *testing.T) {
	d, err := ParseLocalDate("2024-02-28")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.True(t, d.Equal(MustLocalDate("2024-02-28")))

	_, err = ParseLocalDate("28.02.2024")
	assert.True(t, IsValidation(err))

	// Календарный день берётся в зоне самого времени.
	riyadh := time.FixedZone("AST", 3*60*60)
	late := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-10", LocalDateOf(late).String())
	assert.Equal(t, "2024-03-11", LocalDateOf(late.In(riyadh)).String())
}

func TestRatioAndClamp(t *testing.T) {
	assert.Equal(t, Percent(0), Ratio(3, 0))
	assert.Equal(t, Percent(0), Ratio(0, 4))
	assert.Equal(t, Percent(50), Ratio(2, 4))
	assert.Equal(t, Percent(100), Ratio(5, 4))
	assert.Equal(t, 33.33, Ratio(1, 3).Round2())

	assert.Equal(t, Percent(0), ClampPercent(math.NaN()))
	assert.Equal(t, Percent(0), ClampPercent(-1))
	assert.Equal(t, Percent(100), ClampPercent(250))
}

func TestVisibleTo(t *testing.T) {
	adv := LevelAdvanced
	empty := Level("")
	assert.True(t, VisibleTo(nil, LevelBeginner))
	assert.True(t, VisibleTo(&empty, LevelBeginner))
	assert.True(t, VisibleTo(&adv, LevelAdvanced))
	assert.False(t, VisibleTo(&adv, LevelBeginner))
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 7, NormalizeLimit(7))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
}

func TestDomainErrorKinds(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transient("ledger", "Credit", cause)

	assert.True(t, IsTransient(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsValidation(err))
	assert.Equal(t, "ledger.Credit: store unavailable: connection reset", err.Error())

	nf := NotFound("learner", "GetByID", "learner not found")
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsRetryable(nf))
	assert.Equal(t, "learner.GetByID: learner not found", nf.Error())

	assert.True(t, IsConflict(Conflict("submission", "Resubmit", "already approved")))
	assert.True(t, IsRetryable(WrapError("x", "Op", ErrValidation, "slow", ErrTimeout)))
}
