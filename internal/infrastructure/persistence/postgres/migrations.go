package postgres

// Migrations returns the embedded schema, oldest first.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_learners_and_catalog", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_progress_facts", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_xp_ledger", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_badges", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// 001: learners, teams, catalog
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE teams (
    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name        TEXT NOT NULL,
    code        TEXT NOT NULL UNIQUE,
    leader_id   UUID,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE learners (
    id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    full_name         TEXT NOT NULL DEFAULT '',
    level             TEXT CHECK (level IN ('Beginner', 'Intermediate', 'Advanced')),
    english_level     TEXT CHECK (english_level IN ('A', 'B', 'C')),
    status            TEXT NOT NULL DEFAULT 'pending'
                      CHECK (status IN ('pending', 'approved', 'rejected')),
    role              TEXT NOT NULL DEFAULT 'learner'
                      CHECK (role IN ('learner', 'admin', 'team_leader')),
    team_id           UUID REFERENCES teams(id) ON DELETE SET NULL,
    xp_total          INTEGER NOT NULL DEFAULT 0 CHECK (xp_total >= 0),
    streak_days       INTEGER NOT NULL DEFAULT 0 CHECK (streak_days >= 0),
    data_progress     DOUBLE PRECISION NOT NULL DEFAULT 0,
    english_progress  DOUBLE PRECISION NOT NULL DEFAULT 0,
    soft_progress     DOUBLE PRECISION NOT NULL DEFAULT 0,
    overall_progress  DOUBLE PRECISION NOT NULL DEFAULT 0,
    progress_computed_at TIMESTAMPTZ,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

ALTER TABLE teams ADD CONSTRAINT teams_leader_fk
    FOREIGN KEY (leader_id) REFERENCES learners(id) ON DELETE SET NULL;

CREATE INDEX idx_learners_ranking ON learners (xp_total DESC, streak_days DESC) WHERE role <> 'admin';
CREATE INDEX idx_learners_team ON learners (team_id) WHERE team_id IS NOT NULL;

CREATE TABLE lessons (
    id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    title          TEXT NOT NULL,
    track_type     TEXT NOT NULL,
    level          TEXT CHECK (level IN ('Beginner', 'Intermediate', 'Advanced')),
    english_level  TEXT CHECK (english_level IN ('A', 'B', 'C')),
    published      BOOLEAN NOT NULL DEFAULT FALSE,
    order_index    INTEGER NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_lessons_published ON lessons (track_type, level) WHERE published;

CREATE TABLE tasks (
    id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    title       TEXT NOT NULL,
    track_type  TEXT NOT NULL,
    xp          INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
    level       TEXT CHECK (level IN ('Beginner', 'Intermediate', 'Advanced')),
    published   BOOLEAN NOT NULL DEFAULT FALSE,
    deadline    TIMESTAMPTZ,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_tasks_published ON tasks (level) WHERE published;

CREATE OR REPLACE FUNCTION set_updated_at()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ LANGUAGE plpgsql;

CREATE TRIGGER learners_updated_at
    BEFORE UPDATE ON learners
    FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`

const migration001Down = `
DROP TABLE IF EXISTS tasks;
DROP TABLE IF EXISTS lessons;
ALTER TABLE IF EXISTS teams DROP CONSTRAINT IF EXISTS teams_leader_fk;
DROP TABLE IF EXISTS learners;
DROP TABLE IF EXISTS teams;
DROP FUNCTION IF EXISTS set_updated_at();
`

// ══════════════════════════════════════════════════════════════════════════════
// 002: per-learner facts
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE lesson_completions (
    learner_id  UUID NOT NULL REFERENCES learners(id),
    lesson_id   UUID NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
    watched     BOOLEAN NOT NULL DEFAULT FALSE,
    watched_at  TIMESTAMPTZ,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (learner_id, lesson_id)
);

CREATE TABLE task_submissions (
    id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    learner_id        UUID NOT NULL REFERENCES learners(id),
    task_id           UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    status            TEXT NOT NULL DEFAULT 'pending'
                      CHECK (status IN ('pending', 'submitted', 'approved', 'rejected')),
    proof             TEXT NOT NULL DEFAULT '',
    proof_type        TEXT NOT NULL DEFAULT 'text' CHECK (proof_type IN ('text', 'link', 'file')),
    submitted_at      TIMESTAMPTZ,
    reviewed_at       TIMESTAMPTZ,
    reviewer_id       UUID REFERENCES learners(id),
    rejection_reason  TEXT NOT NULL DEFAULT '',
    xp_granted        INTEGER CHECK (xp_granted >= 0),
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (learner_id, task_id)
);

CREATE INDEX idx_submissions_approved ON task_submissions (learner_id) WHERE status = 'approved';

CREATE TABLE daily_checkins (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    learner_id    UUID NOT NULL REFERENCES learners(id),
    date          DATE NOT NULL,
    data_task     BOOLEAN NOT NULL DEFAULT FALSE,
    lang_task     BOOLEAN NOT NULL DEFAULT FALSE,
    soft_task     BOOLEAN NOT NULL DEFAULT FALSE,
    xp_generated  INTEGER NOT NULL DEFAULT 0 CHECK (xp_generated >= 0),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (learner_id, date)
);

CREATE TABLE custom_lessons (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    learner_id    UUID NOT NULL REFERENCES learners(id),
    title         TEXT NOT NULL,
    track_type    TEXT NOT NULL DEFAULT 'custom',
    completed     BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at  TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE custom_tasks (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    learner_id    UUID NOT NULL REFERENCES learners(id),
    title         TEXT NOT NULL,
    track_type    TEXT NOT NULL DEFAULT 'custom',
    xp_value      INTEGER NOT NULL DEFAULT 0 CHECK (xp_value >= 0),
    completed     BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at  TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_custom_lessons_learner ON custom_lessons (learner_id);
CREATE INDEX idx_custom_tasks_learner ON custom_tasks (learner_id);
`

const migration002Down = `
DROP TABLE IF EXISTS custom_tasks;
DROP TABLE IF EXISTS custom_lessons;
DROP TABLE IF EXISTS daily_checkins;
DROP TABLE IF EXISTS task_submissions;
DROP TABLE IF EXISTS lesson_completions;
`

// ══════════════════════════════════════════════════════════════════════════════
// 003: XP ledger and activity feed (append-only)
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE xp_events (
    id               UUID PRIMARY KEY,
    learner_id       UUID NOT NULL REFERENCES learners(id),
    source           TEXT NOT NULL
                     CHECK (source IN ('task_approval', 'checkin', 'custom_task', 'admin_adjustment')),
    requested_delta  INTEGER NOT NULL CHECK (requested_delta <> 0),
    applied_delta    INTEGER NOT NULL,
    balance_after    INTEGER NOT NULL CHECK (balance_after >= 0),
    related_id       UUID,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_xp_events_learner ON xp_events (learner_id, created_at DESC);

CREATE TABLE activities (
    id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    learner_id     UUID NOT NULL REFERENCES learners(id),
    activity_type  TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    xp_earned      INTEGER NOT NULL DEFAULT 0,
    related_id     UUID,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX idx_activities_learner ON activities (learner_id, created_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS activities;
DROP TABLE IF EXISTS xp_events;
`

// ══════════════════════════════════════════════════════════════════════════════
// 004: badges
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE badges (
    id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name         TEXT NOT NULL UNIQUE,
    description  TEXT NOT NULL DEFAULT '',
    xp_required  INTEGER NOT NULL CHECK (xp_required >= 0)
);

CREATE TABLE learner_badges (
    learner_id  UUID NOT NULL REFERENCES learners(id),
    badge_id    UUID NOT NULL REFERENCES badges(id) ON DELETE CASCADE,
    earned_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (learner_id, badge_id)
);
`

const migration004Down = `
DROP TABLE IF EXISTS learner_badges;
DROP TABLE IF EXISTS badges;
`
