package storage

import "time"

// GameRecord represents a row in the games table
type GameRecord struct {
	TaskID    string     `db:"task_id"`
	StartedAt time.Time  `db:"started_at"`
	EndedAt   *time.Time `db:"ended_at"`
	Result    string     `db:"result"` // "1-0", "0-1", "1/2-1/2", "*"
	Reason    string     `db:"reason"` // checkmate, resignation, ...
	FinalFEN  string     `db:"final_fen"`
	Plies     int        `db:"plies"`
}

// MoveRecord represents a row in the moves table
type MoveRecord struct {
	MoveID    int64     `db:"move_id"`
	TaskID    string    `db:"task_id"`
	Ply       int       `db:"ply"`
	MoveUCI   string    `db:"move_uci"`
	FENAfter  string    `db:"fen_after"`
	Actor     string    `db:"actor"` // "user" or "engine"
	CreatedAt time.Time `db:"created_at"`
}

const (
	ActorUser   = "user"
	ActorEngine = "engine"
)

// Schema defines the archive database structure
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	task_id TEXT PRIMARY KEY,
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ended_at DATETIME,
	result TEXT NOT NULL DEFAULT '*',
	reason TEXT NOT NULL DEFAULT '',
	final_fen TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS moves (
	move_id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id TEXT NOT NULL,
	ply INTEGER NOT NULL,
	move_uci TEXT NOT NULL,
	fen_after TEXT NOT NULL,
	actor TEXT NOT NULL CHECK(actor IN ('user', 'engine')),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (task_id) REFERENCES games(task_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_moves_task ON moves(task_id, ply);
CREATE INDEX IF NOT EXISTS idx_games_started ON games(started_at);
`
