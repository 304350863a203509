package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInfo_Centipawns(t *testing.T) {
	var res SearchResult
	parseInfo("info depth 12 seldepth 18 multipv 1 score cp 34 nodes 120394 pv e2e4 e7e5", &res)

	assert.Equal(t, 12, res.Depth)
	assert.Equal(t, 34, res.Score)
	assert.False(t, res.IsMate)
}

func TestParseInfo_Mate(t *testing.T) {
	var res SearchResult
	parseInfo("info depth 20 score mate 3 pv d1h5", &res)

	assert.True(t, res.IsMate)
	assert.Equal(t, 3, res.MateIn)
	assert.Equal(t, 100000-3, res.Score)

	parseInfo("info depth 21 score mate -2", &res)
	assert.Equal(t, -2, res.MateIn)
	assert.Equal(t, -100000+2, res.Score)
}

func TestParseBestMove(t *testing.T) {
	mv, ok := parseBestMove("bestmove e7e5 ponder g1f3")
	assert.True(t, ok)
	assert.Equal(t, "e7e5", mv)

	mv, ok = parseBestMove("bestmove (none)")
	assert.True(t, ok)
	assert.Equal(t, "(none)", mv)

	_, ok = parseBestMove("info depth 1")
	assert.False(t, ok)
}
