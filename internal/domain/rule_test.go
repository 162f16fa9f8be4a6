package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(`[
		{"to_box": "news", "filter": [{"type": "ByFrom", "params": "alerts@vendor.com"}]},
		{"to_box": "ops", "filter": [
			{"type": "ByTo", "params": "ops@corp.example"},
			{"type": "ByFrom", "params": "pager@corp.example"}
		]}
	]`))
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "news", rules[0].ToBox)
	require.Len(t, rules[0].Filter, 1)
	assert.Equal(t, FilterByFrom, rules[0].Filter[0].Type)
	assert.Equal(t, "alerts@vendor.com", rules[0].Filter[0].Address)

	assert.Equal(t, "ops", rules[1].ToBox)
	assert.Len(t, rules[1].Filter, 2)
}

func TestParseRules_Empty(t *testing.T) {
	rules, err := ParseRules(nil)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed json", `[{`},
		{"missing to_box", `[{"filter": [{"type": "ByFrom", "params": "a@b.c"}]}]`},
		{"empty filter list", `[{"to_box": "news", "filter": []}]`},
		{"unknown filter type", `[{"to_box": "news", "filter": [{"type": "BySubject", "params": "x"}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestFilterMatches(t *testing.T) {
	from := []string{"alerts@vendor.com"}
	to := []string{"me@example.com", "ops@corp.example"}

	byFrom := Filter{Type: FilterByFrom, Address: "alerts@vendor.com"}
	assert.True(t, byFrom.Matches(from, to))
	assert.False(t, byFrom.Matches(to, from))

	byTo := Filter{Type: FilterByTo, Address: "ops@corp.example"}
	assert.True(t, byTo.Matches(from, to))

	// 精确匹配，不做子串处理
	partial := Filter{Type: FilterByFrom, Address: "vendor.com"}
	assert.False(t, partial.Matches(from, to))
}

func TestRuleMatches_AnyFilter(t *testing.T) {
	rule := Rule{
		ToBox: "ops",
		Filter: []Filter{
			{Type: FilterByFrom, Address: "pager@corp.example"},
			{Type: FilterByTo, Address: "ops@corp.example"},
		},
	}

	// 命中第二个谓词即可
	assert.True(t, rule.Matches([]string{"other@x.y"}, []string{"ops@corp.example"}))
	assert.True(t, rule.Matches([]string{"pager@corp.example"}, nil))
	assert.False(t, rule.Matches([]string{"other@x.y"}, []string{"someone@x.y"}))
}
