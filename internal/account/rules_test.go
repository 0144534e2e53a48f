package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestMergeKeepsMissingFields(t *testing.T) {
	old := BotRule{Active: true, Amount: 10, StopLoss: ptr(5.0), TakeProfit: ptr(8.0)}

	got := old.Merge(BotRulePatch{Amount: ptr(3.0)})
	assert.True(t, got.Active)
	assert.Equal(t, 3.0, got.Amount)
	assert.Equal(t, 5.0, *got.StopLoss)
	assert.Equal(t, 8.0, *got.TakeProfit)

	got = old.Merge(BotRulePatch{Active: ptr(false), ClearStopLoss: true, TakeProfit: ptr(12.0)})
	assert.False(t, got.Active)
	assert.Nil(t, got.StopLoss)
	assert.Equal(t, 12.0, *got.TakeProfit)
	assert.Equal(t, 8.0, *old.TakeProfit, "merge does not alias the receiver")
}

func TestApplyBotRuleCreatesUnknownSymbol(t *testing.T) {
	a := New("mo", DefaultInitialBalance, now)
	cfg := a.ApplyBotRule(" asels ", BotRulePatch{Active: ptr(true)})
	require.Contains(t, cfg, "ASELS")
	assert.Equal(t, BotRule{Active: true}, cfg["ASELS"])
	assert.Equal(t, 1.0, cfg["ASELS"].OrderAmount())

	cfg = a.ApplyBotRule("ASELS", BotRulePatch{Amount: ptr(4.0)})
	assert.Equal(t, BotRule{Active: true, Amount: 4}, cfg["ASELS"])
	assert.Equal(t, 4.0, cfg["ASELS"].OrderAmount())
}
