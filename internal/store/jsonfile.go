package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nimasrn/momo-analyzer/internal/model"
)

// JSONFile persists records as an indented JSON array, the same shape the parse CLI writes.
// Message bodies are written as-is; &, < and > are not escaped.
type JSONFile struct {
	filename string
}

func NewJSONFile(filename string) *JSONFile {
	return &JSONFile{filename: filename}
}

// Load returns no records when the file does not exist yet.
func (f *JSONFile) Load() ([]*model.TransactionRecord, error) {
	data, err := os.ReadFile(f.filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var records []*model.TransactionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.filename, err)
	}
	return records, nil
}

func (f *JSONFile) Save(records []*model.TransactionRecord) error {
	if records == nil {
		records = []*model.TransactionRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return err
	}
	data := buf.Bytes()
	if err := os.MkdirAll(filepath.Dir(f.filename), 0o755); err != nil {
		return err
	}

	tmp := f.filename + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.filename)
}
