package game

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Recorders fans a result out to several recorders.
type Recorders []ResultRecorder

func (rs Recorders) RecordResult(ctx context.Context, res GameResult) error {
	var errs []error
	for _, r := range rs {
		if err := r.RecordResult(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FileExporter appends a text summary of every finished game to a file.
type FileExporter struct {
	Path string
	mu   sync.Mutex
}

func NewFileExporter(path string) *FileExporter {
	return &FileExporter{Path: path}
}

func (e *FileExporter) RecordResult(_ context.Context, res GameResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(e.Path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(e.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(formatResult(res)); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

func formatResult(res GameResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Word Bomb Result - Session %s\n", res.SessionID))
	sb.WriteString(fmt.Sprintf("Finished: %s\n", res.FinishedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 50) + "\n")
	for i, st := range res.Standings {
		marker := ""
		if st.Winner {
			marker = " (winner)"
		}
		sb.WriteString(fmt.Sprintf("%d. %s%s: %d points, %d words, %d lives\n",
			i+1, st.Name, marker, st.Score, st.WordsCreated, st.Lives))
	}
	if res.WinnerID == "" {
		sb.WriteString("No winner\n")
	}
	sb.WriteString("\n")
	return sb.String()
}
