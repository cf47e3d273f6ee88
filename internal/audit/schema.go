package audit

const schemaVersionV1 = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	candidates  INTEGER NOT NULL,
	settings    TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL DEFAULT '',
	reason      TEXT NOT NULL DEFAULT '',
	rounds      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS rounds (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	round       INTEGER NOT NULL,
	batch_size  INTEGER NOT NULL,
	status      TEXT NOT NULL,
	exit_code   INTEGER NOT NULL,
	elapsed_ms  INTEGER NOT NULL,
	attributed  TEXT NOT NULL DEFAULT '',
	recorded_at TEXT NOT NULL,
	PRIMARY KEY (run_id, round)
);

CREATE TABLE IF NOT EXISTS exclusions (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	input       TEXT NOT NULL,
	round       INTEGER NOT NULL,
	cause       TEXT NOT NULL,
	excluded_at TEXT NOT NULL,
	PRIMARY KEY (run_id, input)
);

CREATE INDEX IF NOT EXISTS idx_exclusions_input ON exclusions(input);
`
