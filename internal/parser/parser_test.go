package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFileText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.txt")
	content := "1. What is 2+2?\nA) 3 B) 4\n\n2. Explain gravity.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	segments, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "1. What is 2+2?\nA) 3 B) 4", segments[0].Text)
	assert.Equal(t, "2. Explain gravity.", segments[1].Text)
	assert.Equal(t, 1, segments[0].PageIndex)
}

func TestParseFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.json")
	data := `[{"type":"text","text":"from extraction","page_idx":4}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	segments, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "from extraction", segments[0].Text)
	assert.Equal(t, 4, segments[0].PageIndex)
}

func TestParseFileUnsupported(t *testing.T) {
	_, err := ParseFile("bank.doc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format")
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
