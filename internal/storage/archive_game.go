package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// RecordGameStart starts (or restarts) the archived game for a task id.
// Moves from a previous game under the same task id are discarded.
func (a *Archive) RecordGameStart(taskID string, startedAt time.Time) error {
	return a.enqueue("game_start", func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM moves WHERE task_id = ?`, taskID); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT INTO games (task_id, started_at) VALUES (?, ?)
			ON CONFLICT(task_id) DO UPDATE SET
				started_at = excluded.started_at,
				ended_at = NULL, result = '*', reason = '', final_fen = ''`,
			taskID, startedAt.UTC(),
		)
		return err
	})
}

// RecordMove appends a ply, creating the game row if it predates the archive.
func (a *Archive) RecordMove(record MoveRecord) error {
	return a.enqueue("move", func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO games (task_id, started_at) VALUES (?, ?)`,
			record.TaskID, record.CreatedAt.UTC()); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT INTO moves (
			task_id, ply, move_uci, fen_after, actor, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
			record.TaskID, record.Ply, record.MoveUCI,
			record.FENAfter, record.Actor, record.CreatedAt.UTC(),
		)
		return err
	})
}

// RecordGameEnd closes the archived game with its result.
func (a *Archive) RecordGameEnd(taskID, result, reason, finalFEN string, endedAt time.Time) error {
	return a.enqueue("game_end", func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO games (task_id, started_at, ended_at, result, reason, final_fen)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(task_id) DO UPDATE SET
				ended_at = excluded.ended_at, result = excluded.result,
				reason = excluded.reason, final_fen = excluded.final_fen`,
			taskID, endedAt.UTC(), endedAt.UTC(), result, reason, finalFEN,
		)
		return err
	})
}

// QueryGames lists archived games; "*" or "" matches every task id.
func (a *Archive) QueryGames(taskID string) ([]GameRecord, error) {
	query := `SELECT g.task_id, g.started_at, g.ended_at, g.result, g.reason, g.final_fen,
		(SELECT COUNT(*) FROM moves m WHERE m.task_id = g.task_id)
	FROM games g WHERE 1=1`

	var args []any
	if taskID != "" && taskID != "*" {
		query += " AND g.task_id = ?"
		args = append(args, taskID)
	}
	query += " ORDER BY g.started_at DESC"

	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		var g GameRecord
		var ended sql.NullTime
		if err := rows.Scan(&g.TaskID, &g.StartedAt, &ended, &g.Result, &g.Reason, &g.FinalFEN, &g.Plies); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if ended.Valid {
			t := ended.Time
			g.EndedAt = &t
		}
		games = append(games, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}
	return games, nil
}

// QueryMoves returns the plies of one archived game in order.
func (a *Archive) QueryMoves(taskID string) ([]MoveRecord, error) {
	rows, err := a.db.Query(`SELECT move_id, task_id, ply, move_uci, fen_after, actor, created_at
		FROM moves WHERE task_id = ? ORDER BY ply`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var moves []MoveRecord
	for rows.Next() {
		var m MoveRecord
		if err := rows.Scan(&m.MoveID, &m.TaskID, &m.Ply, &m.MoveUCI, &m.FENAfter, &m.Actor, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}
