package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON_Direct(t *testing.T) {
	raw := ExtractJSON(`{"summary": "ok"}`)
	require.NotNil(t, raw)
	assert.JSONEq(t, `{"summary": "ok"}`, string(raw))
}

func TestExtractJSON_Fenced(t *testing.T) {
	text := "```json\n{\"summary\": \"ok\"}\n```"
	raw := ExtractJSON(text)
	require.NotNil(t, raw)
	assert.JSONEq(t, `{"summary": "ok"}`, string(raw))
}

func TestExtractJSON_EmbeddedInProse(t *testing.T) {
	text := `Here are my findings:

{"validated_claims": [], "summary": "nothing conclusive"}

Let me know if you need more.`
	raw := ExtractJSON(text)
	require.NotNil(t, raw)
	assert.Contains(t, string(raw), "nothing conclusive")
}

func TestExtractJSON_Array(t *testing.T) {
	raw := ExtractJSON(`The tickets: [{"type": "epic", "title": "T"}] done`)
	require.NotNil(t, raw)
	assert.Contains(t, string(raw), `"epic"`)
}

func TestExtractJSON_ScalarRejected(t *testing.T) {
	assert.Nil(t, ExtractJSON(`42`))
	assert.Nil(t, ExtractJSON(`"just a string"`))
}

func TestExtractJSON_NoJSON(t *testing.T) {
	assert.Nil(t, ExtractJSON("I could not produce structured output."))
	assert.Nil(t, ExtractJSON(""))
}
