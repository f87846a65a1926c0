package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the streamswap store (SQLite).
var Migrations = migrate.NewGroup("streamswap")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_streamswap_streams",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamswap_streams (
    id                     INTEGER PRIMARY KEY,
    name                   TEXT NOT NULL DEFAULT '',
    url                    TEXT NOT NULL DEFAULT '',
    treasury               TEXT NOT NULL DEFAULT '',
    stream_admin           TEXT NOT NULL DEFAULT '',
    start_time             TIMESTAMP NOT NULL,
    end_time               TIMESTAMP NOT NULL,
    last_updated           TIMESTAMP NOT NULL,
    out_denom              TEXT NOT NULL,
    out_supply             TEXT NOT NULL DEFAULT '0',
    out_remaining          TEXT NOT NULL DEFAULT '0',
    in_denom               TEXT NOT NULL,
    in_supply              TEXT NOT NULL DEFAULT '0',
    spent_in               TEXT NOT NULL DEFAULT '0',
    shares                 TEXT NOT NULL DEFAULT '0',
    dist_index             TEXT NOT NULL DEFAULT '0',
    current_streamed_price TEXT NOT NULL DEFAULT '0',
    threshold              TEXT NOT NULL DEFAULT '0',
    status                 TEXT NOT NULL DEFAULT 'waiting',
    pause_date             TIMESTAMP,
    created_at             TIMESTAMP NOT NULL DEFAULT (datetime('now')),
    updated_at             TIMESTAMP NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_streamswap_streams_status ON streamswap_streams (status, id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamswap_streams`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_streamswap_positions",
			Version: "20260301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamswap_positions (
    id               TEXT PRIMARY KEY,
    stream_id        INTEGER NOT NULL,
    owner            TEXT NOT NULL,
    operator         TEXT NOT NULL DEFAULT '',
    in_balance       TEXT NOT NULL DEFAULT '0',
    shares           TEXT NOT NULL DEFAULT '0',
    dist_index       TEXT NOT NULL DEFAULT '0',
    purchased        TEXT NOT NULL DEFAULT '0',
    pending_purchase TEXT NOT NULL DEFAULT '0',
    spent            TEXT NOT NULL DEFAULT '0',
    last_updated     TIMESTAMP NOT NULL,
    exit_date        TIMESTAMP,
    created_at       TIMESTAMP NOT NULL DEFAULT (datetime('now')),
    updated_at       TIMESTAMP NOT NULL DEFAULT (datetime('now')),
    UNIQUE (stream_id, owner)
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamswap_positions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_streamswap_transfers",
			Version: "20260301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamswap_transfers (
    id         TEXT PRIMARY KEY,
    stream_id  INTEGER NOT NULL,
    seq        INTEGER NOT NULL DEFAULT 0,
    kind       TEXT NOT NULL,
    recipient  TEXT NOT NULL,
    denom      TEXT NOT NULL,
    amount     TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_streamswap_transfers_stream ON streamswap_transfers (stream_id, created_at, seq);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS streamswap_transfers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_streamswap_params",
			Version: "20260301000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS streamswap_params (
    id                       INTEGER PRIMARY KEY,
    min_stream_duration      INTEGER NOT NULL,
    min_duration_until_start INTEGER NOT NULL,
    accepted_in_denom        TEXT NOT NULL,
    creation_fee_denom       TEXT NOT NULL,
    creation_fee_amount      TEXT NOT NULL,
    exit_fee_percent         TEXT NOT NULL,
    fee_collector            TEXT NOT NULL,
    protocol_admin           TEXT NOT NULL,
    governance               TEXT NOT NULL DEFAULT '',
    updated_at               TIMESTAMP NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS streamswap_sequences (
    name  TEXT PRIMARY KEY,
    value INTEGER NOT NULL
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
DROP TABLE IF EXISTS streamswap_sequences;
DROP TABLE IF EXISTS streamswap_params;
`)
				return err
			},
		},
	)
}
