package chatlog

type migration struct {
	version int
	sql     string
}

// migrations must be ordered by version, starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_entries (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_entries_session ON chat_entries (session_id, id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
