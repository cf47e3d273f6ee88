package mscore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/backmassage/scorebatch/internal/planner"
)

// EncodeJob renders batch as the converter's job description:
// a JSON array of {"in": ..., "out": ...} objects in batch order.
func EncodeJob(batch planner.Batch) ([]byte, error) {
	if batch == nil {
		batch = planner.Batch{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(batch); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJob writes the job description for batch to path, replacing any
// previous round's job atomically so the converter never reads a partial
// file.
func WriteJob(path string, batch planner.Batch) error {
	data, err := EncodeJob(batch)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".job-*.json")
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write job: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close job: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("install job: %w", err)
	}
	return nil
}
