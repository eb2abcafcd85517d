package master

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
)

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		masterDir  string
		wantMaster string
		wantDups   []string
		wantReason Reason
		wantWarn   bool
	}{
		{
			name:       "OnlyFile",
			candidates: []Candidate{{"/a/x", t1}},
			wantMaster: "/a/x",
			wantReason: ReasonOnlyFile,
		},
		{
			name:       "OldestWins",
			candidates: []Candidate{{"/a/new", t2}, {"/b/old", t0}, {"/b/mid", t1}},
			wantMaster: "/b/old",
			wantDups:   []string{"/b/mid", "/a/new"},
			wantReason: ReasonOldest,
		},
		{
			name:       "TieBrokenByPath",
			candidates: []Candidate{{"/b/file", t0}, {"/a/file", t0}},
			wantMaster: "/a/file",
			wantDups:   []string{"/b/file"},
			wantReason: ReasonOldest,
		},
		{
			name:       "SingleInMasterDir",
			candidates: []Candidate{{"/a/old", t0}, {"/b/new", t2}},
			masterDir:  "/b",
			wantMaster: "/b/new",
			wantDups:   []string{"/a/old"},
			wantReason: ReasonInMasterDir,
		},
		{
			name:       "SeveralInMasterDir",
			candidates: []Candidate{{"/a/oldest", t0}, {"/b/one", t2}, {"/b/two", t1}},
			masterDir:  "/b",
			wantMaster: "/b/two",
			wantDups:   []string{"/a/oldest", "/b/one"},
			wantReason: ReasonOldestInMasterDir,
			wantWarn:   true,
		},
		{
			name:       "NoneInMasterDir",
			candidates: []Candidate{{"/a/x", t1}, {"/b/y", t0}},
			masterDir:  "/c",
			wantMaster: "/b/y",
			wantDups:   []string{"/a/x"},
			wantReason: ReasonOldest,
		},
		{
			name:       "MasterDirPrefixIsNotParent",
			candidates: []Candidate{{"/b2/x", t0}, {"/b/y", t1}},
			masterDir:  "/b",
			wantMaster: "/b/y",
			wantDups:   []string{"/b2/x"},
			wantReason: ReasonInMasterDir,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.candidates, tt.masterDir)
			assert.Equal(t, tt.wantMaster, got.Master)
			assert.Equal(t, tt.wantDups, got.Duplicates)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.Equal(t, tt.wantWarn, got.Warning != "")
		})
	}
}

func TestSelectEmpty(t *testing.T) {
	assert.Equal(t, Selection{}, Select(nil, "/a"))
}

func TestSelectDeterministic(t *testing.T) {
	candidates := []Candidate{
		{"/a/1", t1}, {"/a/2", t0}, {"/b/3", t0}, {"/b/4", t2}, {"/b/5", t1},
	}
	want := Select(candidates, "/b")

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]Candidate(nil), candidates...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, want, Select(shuffled, "/b"))
	}
	assert.Equal(t, "/b/3", want.Master)
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	candidates := []Candidate{{"/z", t2}, {"/a", t0}}
	Select(candidates, "")
	assert.Equal(t, "/z", candidates[0].Path)
}
