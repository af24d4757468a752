// Package excel imports gloss lexicon files (xlsx or csv) into the gloss
// cache, so quizzes can run without asking the oracle for well-known
// words.
package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/koinebot/internal/database"
	"github.com/example/koinebot/internal/greek"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath    string // Path to the Excel or CSV file
	WordColumn  int    // Zero-based column with the Greek word
	GlossColumn int    // Zero-based column with semicolon-separated glosses
	SheetName   string // Name of the sheet to import (Excel only)
	StartRow    int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		WordColumn:  0,
		GlossColumn: 1,
		SheetName:   "Sheet1",
		StartRow:    2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Imported       int
	Skipped        int
	Errors         []string
}

// ImportLexicon imports word/gloss rows from an Excel or CSV file into
// the gloss cache.
func ImportLexicon(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		return importFromCSV(ctx, config)
	}
	return importFromExcel(ctx, config)
}

func importFromExcel(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	glossRepo := database.NewGlossRepository()
	result := &ImportResult{Errors: make([]string, 0)}

	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		result.TotalProcessed++
		if err := processRow(ctx, row, config, glossRepo, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		}
	}
	return result, nil
}

func importFromCSV(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	glossRepo := database.NewGlossRepository()
	result := &ImportResult{Errors: make([]string, 0)}

	for line := 1; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", line, err))
			continue
		}
		if line < config.StartRow {
			continue
		}
		result.TotalProcessed++
		if err := processRow(ctx, row, config, glossRepo, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", line, err))
		}
	}
	return result, nil
}

func processRow(ctx context.Context, row []string, config ImportConfig, glossRepo *database.GlossRepository, result *ImportResult) error {
	if config.WordColumn >= len(row) {
		result.Skipped++
		return nil
	}
	word := strings.TrimSpace(row[config.WordColumn])
	if word == "" {
		result.Skipped++
		return nil
	}

	var glosses []string
	if config.GlossColumn < len(row) {
		for _, g := range strings.Split(row[config.GlossColumn], ";") {
			g = strings.ToLower(strings.TrimSpace(g))
			if g != "" {
				glosses = append(glosses, g)
			}
		}
	}
	if len(glosses) == 0 {
		result.Skipped++
		return nil
	}

	// Cache keys are normalized, matching the tokens quizzes look up.
	if err := glossRepo.Put(ctx, greek.NormalKey(word), glosses); err != nil {
		return err
	}
	result.Imported++
	return nil
}
