package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestionsEnvelope(t *testing.T) {
	raw := `{"questions":[{"content":"What is 2+2?","type":"single","options":[{"key":"A","content":"3"},{"key":"B","content":"4"}],"correctAnswer":["B"]}]}`
	candidates, errs := Parse(raw)
	require.Empty(t, errs)
	require.Len(t, candidates, 1)
	assert.Equal(t, "What is 2+2?", candidates[0].Content)
	assert.Equal(t, []string{"B"}, []string(candidates[0].CorrectAnswer))
}

func TestParseMarkdownFences(t *testing.T) {
	raw := "```json\n{\"questions\":[{\"content\":\"q1\"}]}\n```"
	candidates, errs := Parse(raw)
	require.Empty(t, errs)
	require.Len(t, candidates, 1)
	assert.Equal(t, "q1", candidates[0].Content)
}

func TestParseBareArray(t *testing.T) {
	candidates, errs := Parse(`[{"content":"q1"},{"content":"q2"}]`)
	require.Empty(t, errs)
	require.Len(t, candidates, 2)
}

func TestParseSingleObject(t *testing.T) {
	candidates, errs := Parse(`{"content":"lonely question","type":"short_answer"}`)
	require.Empty(t, errs)
	require.Len(t, candidates, 1)
	assert.Equal(t, "lonely question", candidates[0].Content)
}

func TestParseEmptyEnvelope(t *testing.T) {
	candidates, errs := Parse(`{"questions":[]}`)
	assert.Empty(t, errs)
	assert.Empty(t, candidates)
}

func TestParseSurroundingProse(t *testing.T) {
	raw := `Here are the extracted questions:
{"questions":[{"content":"q1"}]}
Hope this helps!`
	candidates, errs := Parse(raw)
	require.Empty(t, errs)
	require.Len(t, candidates, 1)
	assert.Equal(t, "q1", candidates[0].Content)
}

func TestParseConcatenatedObjects(t *testing.T) {
	raw := `{"content":"q1"}
{"content":"q2"}`
	candidates, errs := Parse(raw)
	require.Empty(t, errs)
	require.Len(t, candidates, 2)
}

func TestParsePartialFailure(t *testing.T) {
	// Second object is truncated beyond repair; the first still parses.
	raw := `{"questions":[{"content":"good"}]} and then {"content": oops}`
	candidates, errs := Parse(raw)
	require.Len(t, candidates, 1)
	assert.Equal(t, "good", candidates[0].Content)
	require.Len(t, errs, 1)
	assert.NotZero(t, errs[0].Offset)
}

func TestParseNoJSON(t *testing.T) {
	candidates, errs := Parse("no structured data here")
	assert.Empty(t, candidates)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Detail, "no JSON object")
}

func TestParseEmptyInput(t *testing.T) {
	candidates, errs := Parse("   \n ")
	assert.Empty(t, candidates)
	assert.Empty(t, errs)
}

func TestParseBracesInsideStrings(t *testing.T) {
	raw := `{"questions":[{"content":"What does {x} mean? And \"}\" too."}]}`
	candidates, errs := Parse(raw)
	require.Empty(t, errs)
	require.Len(t, candidates, 1)
	assert.Contains(t, candidates[0].Content, "{x}")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\njson\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`{"a":1}`))
	assert.Equal(t, "", StripFences("```json\n```"))
}
