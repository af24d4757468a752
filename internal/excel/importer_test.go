package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/koinebot/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DATA_DIR", t.TempDir())
	require.NoError(t, database.Connect())
	t.Cleanup(func() {
		require.NoError(t, database.Close())
		database.DB = nil
	})
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexicon.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestImportLexiconCSV(t *testing.T) {
	setupTestDB(t)

	config := DefaultImportConfig()
	config.FilePath = writeCSV(t, "word,glosses\n"+
		"λόγος,word; reason ;speech\n"+
		"θεός,God\n"+
		",orphan glosses\n"+
		"ἀρχή,\n")

	result, err := ImportLexicon(context.Background(), config)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalProcessed)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, result.Errors)

	// Entries land under the normalized key the quiz layer looks up with,
	// not the accented spreadsheet spelling.
	glosses, err := database.NewGlossRepository().Get(context.Background(), "λογος")
	require.NoError(t, err)
	assert.Equal(t, []string{"word", "reason", "speech"}, glosses)

	glosses, err = database.NewGlossRepository().Get(context.Background(), "θεος")
	require.NoError(t, err)
	assert.Equal(t, []string{"god"}, glosses, "glosses are lowercased")

	miss, err := database.NewGlossRepository().Get(context.Background(), "λόγος")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestImportLexiconMissingFile(t *testing.T) {
	config := DefaultImportConfig()
	config.FilePath = filepath.Join(t.TempDir(), "absent.csv")

	_, err := ImportLexicon(context.Background(), config)
	assert.Error(t, err)
}
