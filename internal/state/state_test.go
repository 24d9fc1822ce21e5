package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	st := &Store{Path: filepath.Join(t.TempDir(), "worker_state.json")}
	if got := st.Load(); got != (State{}) {
		t.Errorf("Load() on missing file = %+v, want zero state", got)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := &Store{Path: path}
	if got := st.Load(); got != (State{}) {
		t.Errorf("Load() on corrupt file = %+v, want zero state", got)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	st := &Store{Path: filepath.Join(t.TempDir(), "worker_state.json")}
	want := State{Last: "session-20240801-153000", LastMtime: 1722526200.25, Result: ResultMoved}
	st.Save(want)
	if got := st.Load(); got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestMatches(t *testing.T) {
	s := State{Last: "b1", LastMtime: 100.5}
	tests := []struct {
		name  string
		batch string
		mtime float64
		want  bool
	}{
		{"same name and fingerprint", "b1", 100.5, true},
		{"different name", "b2", 100.5, false},
		{"touched image", "b1", 101.5, false},
		{"empty candidate", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Matches(tt.batch, tt.mtime); got != tt.want {
				t.Errorf("Matches(%q, %v) = %v, want %v", tt.batch, tt.mtime, got, tt.want)
			}
		})
	}
}
