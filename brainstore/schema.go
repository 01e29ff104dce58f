package brainstore

// TableName is the table the SQL backends keep brain ids in.
const TableName = "contextgc_brain_ids"

// Schema creates the brain-id table. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS contextgc_brain_ids (
	session_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	brain_id   BIGINT NOT NULL CHECK (brain_id >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (session_id, message_id)
);

CREATE INDEX IF NOT EXISTS idx_contextgc_brain_ids_brain_id
	ON contextgc_brain_ids (session_id, brain_id);
`
