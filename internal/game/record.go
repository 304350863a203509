package game

import (
	"encoding/json"
	"fmt"

	"chessagent/internal/core"
)

// Record is the persisted form of a Game. Field names are the storage contract.
type Record struct {
	FEN             string         `json:"fen"`
	EngineTimeLimit float64        `json:"engine_time_limit"`
	State           core.TaskState `json:"state"`
	MoveHistory     []string       `json:"move_history"`
}

// Record snapshots the game for storage.
func (g *Game) Record() Record {
	return Record{
		FEN:             g.fen,
		EngineTimeLimit: g.engineTimeLimit,
		State:           g.state,
		MoveHistory:     g.MoveHistory(),
	}
}

func (r Record) Marshal() ([]byte, error) {
	if r.MoveHistory == nil {
		r.MoveHistory = []string{}
	}
	return json.Marshal(r)
}

func UnmarshalRecord(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("decoding game record: %w", err)
	}
	if r.EngineTimeLimit <= 0 {
		r.EngineTimeLimit = DefaultEngineTimeLimit
	}
	r.State = core.ParseTaskState(string(r.State))
	return r, nil
}
