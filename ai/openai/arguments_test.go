package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeArguments(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid", `{"query":"Hamlet"}`, `{"query":"Hamlet"}`},
		{"empty", "", "{}"},
		{"whitespace", "  \n", "{}"},
		{"fenced", "```json\n{\"query\":\"x\"}\n```", `{"query":"x"}`},
		{"missing key quote", `{query": "x"}`, `{"query": "x"}`},
		{"missing second key quote", `{"a": 1, b": 2}`, `{"a": 1, "b": 2}`},
		{"unrepairable", `{query: x}`, `{query: x}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeArguments(tt.in))
		})
	}
}
