package store

// schemaDDL creates all tables. Statements are idempotent so opening an
// existing database is safe.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	pipeline         TEXT NOT NULL,
	target_root      TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'running',
	confidence_kind  TEXT,
	confidence_value REAL NOT NULL DEFAULT -1,
	confidence_json  TEXT,
	evidence_json    TEXT,
	error            TEXT,
	duration_ms      INTEGER NOT NULL DEFAULT 0,
	started_at       TEXT NOT NULL,
	finished_at      TEXT
);

CREATE TABLE IF NOT EXISTS findings (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id   INTEGER NOT NULL REFERENCES runs(id),
	unit     TEXT NOT NULL,
	rule     TEXT NOT NULL,
	severity TEXT NOT NULL,
	file     TEXT NOT NULL,
	line     INTEGER NOT NULL DEFAULT 0,
	message  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);

CREATE TABLE IF NOT EXISTS rationale (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol      TEXT NOT NULL,
	decision    TEXT NOT NULL,
	rationale   TEXT,
	author      TEXT,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rationale_symbol ON rationale(symbol);

CREATE TABLE IF NOT EXISTS calibration_samples (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	construction TEXT NOT NULL,
	predicted    REAL NOT NULL,
	outcome      INTEGER NOT NULL,
	recorded_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calibration_construction ON calibration_samples(construction);
`
