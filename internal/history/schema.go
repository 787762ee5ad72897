package history

const schema = `
CREATE TABLE IF NOT EXISTS probes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    server TEXT NOT NULL,
    mode TEXT NOT NULL,
    alive BOOLEAN NOT NULL,
    latency_ms INTEGER,
    error_tag TEXT,
    tool_count INTEGER,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_probes_server ON probes(server);
CREATE INDEX IF NOT EXISTS idx_probes_created ON probes(created_at);
`
