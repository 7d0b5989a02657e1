package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tracks-academy/progress-ledger/internal/domain/catalog"
	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

func lesson(id string, track shared.Track, level *shared.Level) catalog.Lesson {
	return catalog.Lesson{ID: id, Track: track, Level: level, Published: true}
}

func TestCompute_Empty(t *testing.T) {
	r := Compute(Snapshot{Level: shared.LevelBeginner})
	assert.Equal(t, shared.Percent(0), r.Overall)
	assert.Equal(t, shared.Percent(0), r.TaskPct)
	for _, tr := range shared.FixedTracks {
		assert.Equal(t, shared.Percent(0), r.PerTrack[tr])
	}
}

func TestCompute_WeightsTracksAndTasks(t *testing.T) {
	adv := shared.LevelAdvanced
	s := Snapshot{
		Level: shared.LevelBeginner,
		Lessons: []catalog.Lesson{
			lesson("d1", shared.TrackData, nil),
			lesson("d2", shared.TrackData, nil),
			lesson("d3", shared.TrackData, &adv), // не видим новичку
			lesson("e1", shared.TrackEnglish, nil),
			lesson("c1", shared.Track("python"), nil), // кастомный трек не в среднем
			{ID: "d4", Track: shared.TrackData},       // не опубликован
		},
		WatchedLessons: []string{"d1", "d3", "e1", "c1"},
		Tasks: []catalog.Task{
			{ID: "t1", Published: true},
			{ID: "t2", Published: true},
			{ID: "t3", Published: true, Level: &adv},
		},
		ApprovedTaskIDs: []string{"t1", "t3"},
	}

	r := Compute(s)
	assert.Equal(t, shared.Percent(50), r.PerTrack[shared.TrackData])
	assert.Equal(t, shared.Percent(100), r.PerTrack[shared.TrackEnglish])
	assert.Equal(t, shared.Percent(0), r.PerTrack[shared.TrackSoft])
	assert.Equal(t, 2, r.LessonsTotal[shared.TrackData])
	assert.Equal(t, shared.Percent(50), r.TaskPct)
	assert.Equal(t, 1, r.TasksDone)
	assert.Equal(t, 2, r.TasksTotal)

	// 0.5·mean(50, 100, 0) + 0.5·50 = 25 + 25
	assert.Equal(t, 50.0, r.Overall.Round2())
}

func TestCompute_IgnoresDuplicates(t *testing.T) {
	s := Snapshot{
		Level:           shared.LevelIntermediate,
		Lessons:         []catalog.Lesson{lesson("s1", shared.TrackSoft, nil), lesson("s1", shared.TrackSoft, nil)},
		WatchedLessons:  []string{"s1", "s1"},
		Tasks:           []catalog.Task{{ID: "t1", Published: true}, {ID: "t1", Published: true}},
		ApprovedTaskIDs: []string{"t1"},
	}
	r := Compute(s)
	assert.Equal(t, 1, r.LessonsTotal[shared.TrackSoft])
	assert.Equal(t, 1, r.TasksTotal)
	assert.Equal(t, 66.67, r.Overall.Round2())
}
