package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GwennKoi/XorShiftLPC/internal/xorshift"
)

const TraceVersion = 1

const (
	OpRange   = "range"
	OpShuffle = "shuffle"
	OpPick    = "pick"
)

var ErrVersion = errors.New("unsupported trace version")

type Header struct {
	Version     int           `json:"version"`
	TraceID     string        `json:"trace_id"`
	InitialSeed xorshift.Seed `json:"initial_seed"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Step is one recorded call. Which result field is set depends on Op.
type Step struct {
	Op     string        `json:"op"`
	Size   int           `json:"size,omitempty"`
	Items  []string      `json:"items,omitempty"`
	SeedIn xorshift.Seed `json:"seed_in"`

	Int    int      `json:"int,omitempty"`
	Values []string `json:"values,omitempty"`
	Value  string   `json:"value,omitempty"`

	SeedOut xorshift.Seed `json:"seed_out"`
}

type Trace struct {
	Header Header `json:"header"`
	Steps  []Step `json:"steps"`
}

// FinalSeed is the seed a caller continues the chain with.
func (t Trace) FinalSeed() xorshift.Seed {
	if len(t.Steps) == 0 {
		return t.Header.InitialSeed.Sanitize()
	}
	return t.Steps[len(t.Steps)-1].SeedOut
}

func checkVersion(op string, h Header) error {
	if h.Version != TraceVersion {
		return fmt.Errorf("%s trace: got version %d want %d: %w", op, h.Version, TraceVersion, ErrVersion)
	}
	return nil
}

// check guards file access; tr is nil before anything has been decoded.
func check(op, path string, tr *Trace) error {
	if path == "" {
		return fmt.Errorf("%s trace: path is empty", op)
	}
	if tr == nil {
		return nil
	}
	return checkVersion(op, tr.Header)
}

func Save(path string, tr Trace) error {
	if err := check("save", path, &tr); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trace: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure trace dir: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, blob, 0o644); err != nil {
		return fmt.Errorf("write trace temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename trace temp file: %w", err)
	}
	return nil
}

func Load(path string) (Trace, error) {
	if err := check("load", path, nil); err != nil {
		return Trace{}, err
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return Trace{}, fmt.Errorf("read trace file: %w", err)
	}

	var tr Trace
	if err := json.Unmarshal(blob, &tr); err != nil {
		return Trace{}, fmt.Errorf("decode trace file: %w", err)
	}
	if err := check("load", path, &tr); err != nil {
		return Trace{}, err
	}
	return tr, nil
}
