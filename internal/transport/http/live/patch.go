package livehttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"papertrade/internal/account"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const botRuleSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "active":     {"type": "boolean"},
    "amount":     {"type": "number", "minimum": 0},
    "stopLoss":   {"type": ["number", "null"], "minimum": 0},
    "takeProfit": {"type": ["number", "null"], "minimum": 0}
  }
}`

var (
	schemaOnce     sync.Once
	schemaCompiled *jsonschema.Schema
	schemaErr      error
)

func botRuleValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("bot_rule.json", strings.NewReader(botRuleSchema)); err != nil {
			schemaErr = err
			return
		}
		schemaCompiled, schemaErr = compiler.Compile("bot_rule.json")
	})
	return schemaCompiled, schemaErr
}

// parseBotRulePatch validates raw against the bot rule schema and turns it
// into a patch. Absent fields are left untouched; an explicit null clears an
// optional threshold.
func parseBotRulePatch(raw []byte) (account.BotRulePatch, error) {
	var patch account.BotRulePatch
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return patch, errors.New("empty bot rule body")
	}
	if !gjson.ValidBytes(raw) {
		return patch, errors.New("bot rule body is not valid JSON")
	}
	schema, err := botRuleValidator()
	if err != nil {
		return patch, fmt.Errorf("compile bot rule schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return patch, err
	}
	if err := schema.Validate(doc); err != nil {
		return patch, fmt.Errorf("invalid bot rule: %w", err)
	}

	if v := gjson.GetBytes(raw, "active"); v.Exists() {
		b := v.Bool()
		patch.Active = &b
	}
	if v := gjson.GetBytes(raw, "amount"); v.Exists() {
		f := v.Float()
		patch.Amount = &f
	}
	patch.StopLoss, patch.ClearStopLoss = optionalThreshold(gjson.GetBytes(raw, "stopLoss"))
	patch.TakeProfit, patch.ClearTakeProfit = optionalThreshold(gjson.GetBytes(raw, "takeProfit"))
	return patch, nil
}

func optionalThreshold(v gjson.Result) (*float64, bool) {
	if !v.Exists() {
		return nil, false
	}
	if v.Type == gjson.Null {
		return nil, true
	}
	f := v.Float()
	return &f, false
}
