package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pipelines (
	id             INTEGER PRIMARY KEY,
	blueprint_id   INTEGER NOT NULL,
	status         TEXT NOT NULL,
	finished_tasks INTEGER NOT NULL DEFAULT 0,
	total_tasks    INTEGER NOT NULL DEFAULT 0,
	message        TEXT NOT NULL DEFAULT '',
	spent_seconds  INTEGER NOT NULL DEFAULT 0,
	began_at       DATETIME,
	finished_at    DATETIME,
	created_at     DATETIME NOT NULL,
	fetched_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	blueprint_id INTEGER NOT NULL,
	pipeline_id  INTEGER NOT NULL,
	status       TEXT NOT NULL,
	message      TEXT NOT NULL,
	read         INTEGER NOT NULL DEFAULT 0 CHECK(read IN (0, 1)),
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_pipelines_blueprint_id ON pipelines(blueprint_id);
CREATE INDEX IF NOT EXISTS idx_pipelines_status ON pipelines(status);
CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_pipeline_status
	ON notifications(pipeline_id, status);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
