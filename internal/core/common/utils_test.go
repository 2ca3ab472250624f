package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestParseJSONPlain(t *testing.T) {
	out, err := ParseJSON[payload](`{"name": "Alice", "score": 0.9}`)
	assert.NoError(t, err)
	assert.Equal(t, "Alice", out.Name)
	assert.Equal(t, 0.9, out.Score)
}

func TestParseJSONStripsMarkdownFence(t *testing.T) {
	response := "Here is the result:\n```json\n{\"name\": \"Alice\", \"score\": 0.9}\n```\nLet me know if you need anything else."
	out, err := ParseJSON[payload](response)
	assert.NoError(t, err)
	assert.Equal(t, "Alice", out.Name)
}

func TestParseJSONNoObject(t *testing.T) {
	_, err := ParseJSON[payload]("no structured data here")
	assert.Error(t, err)
}

func TestParseJSONMalformed(t *testing.T) {
	_, err := ParseJSON[payload](`{"name": "Alice",`)
	assert.Error(t, err)
}
