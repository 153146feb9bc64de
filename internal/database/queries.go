package database

const schema = `
	-- Browser-session equivalent key/value storage. The widget keeps exactly
	-- two keys here (token and nonce) and always writes them together.
	CREATE TABLE IF NOT EXISTS session_storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Local activity history of submitted transfers
	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		hash TEXT NOT NULL UNIQUE,
		chain_id INTEGER NOT NULL,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL,
		token_symbol TEXT NOT NULL,
		amount_wei TEXT NOT NULL,
		status TEXT NOT NULL,
		explorer_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transfers_from ON transfers(from_address, created_at);
`

const (
	// Session storage keys
	sessionTokenKey = "glyph-widget-token"
	sessionNonceKey = "glyph-widget-nonce"

	// Session storage queries
	queryGetSessionValue = `
		SELECT value FROM session_storage WHERE key = ?`

	queryUpsertSessionValue = `
		INSERT INTO session_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	queryDeleteSessionValues = `
		DELETE FROM session_storage WHERE key IN (?, ?)`

	// Transfer queries
	queryInsertTransfer = `
		INSERT INTO transfers (id, hash, chain_id, from_address, to_address, token_symbol, amount_wei, status, explorer_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateTransferStatus = `
		UPDATE transfers
		SET status = ?, explorer_url = CASE WHEN ? = '' THEN explorer_url ELSE ? END, updated_at = ?
		WHERE hash = ?`

	queryGetTransfer = `
		SELECT id, hash, chain_id, from_address, to_address, token_symbol, amount_wei, status, explorer_url, created_at, updated_at
		FROM transfers
		WHERE hash = ?`

	queryListTransfers = `
		SELECT id, hash, chain_id, from_address, to_address, token_symbol, amount_wei, status, explorer_url, created_at, updated_at
		FROM transfers
		WHERE (? = '' OR from_address = ?)
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`
)
