// Package state persists the worker's last-processed-batch record.
//
// The record is the pipeline's only idempotency anchor: it is rewritten as
// a whole file and only after a batch's full cycle completes, so a crash
// mid-cycle leaves it pointing at the previous batch and the interrupted
// one is safely reprocessed.
package state

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"
)

// Result values recorded for the last processed batch.
const (
	ResultMoved       = "moved"
	ResultNoDetection = "no_detection"
)

// State records the last batch the worker finished, keyed by name and by
// fingerprint (newest image mtime, Unix seconds with fractional part).
type State struct {
	Last      string  `json:"last"`
	LastMtime float64 `json:"last_mtime"`
	Result    string  `json:"result"`
}

// Matches reports whether a batch with the given name and fingerprint is the
// one this state already covers. Any image added, removed or touched since
// the last run changes the fingerprint and forces reprocessing.
func (s State) Matches(name string, mtime float64) bool {
	return s.Last == name && s.LastMtime == mtime
}

// Store reads and writes the state file.
type Store struct {
	Path string
}

// Load returns the persisted state. A missing or unreadable file yields the
// zero State, which treats every batch as unseen.
func (st *Store) Load() State {
	data, err := os.ReadFile(st.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", st.Path).Msg("Failed to read state file, starting fresh")
		}
		return State{}
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		log.Warn().Err(err).Str("path", st.Path).Msg("Failed to parse state file, starting fresh")
		return State{}
	}
	return s
}

// Save rewrites the state file. A write failure is a warning, not an error:
// losing the record only risks one redundant reprocess on the next cycle.
func (st *Store) Save(s State) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode state")
		return
	}
	if err := os.WriteFile(st.Path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", st.Path).Msg("Failed to write state file")
	}
}
