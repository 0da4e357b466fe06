package services

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

const (
	chunksFile   = "chunks.json"
	vectorsFile  = "vectors.gob"
	manifestFile = "manifest.json"
)

// ErrNotIngested signals that no knowledge base has been built yet. It is an
// expected deployment state, not a failure: callers turn it into an
// instructional answer rather than an error response.
var ErrNotIngested = errors.New("knowledge base not ingested")

// ErrIndexMismatch signals that the persisted chunk store and vector index
// have diverged (different lengths). Retrieval must refuse to run rather than
// silently misalign chunk texts with index rows.
var ErrIndexMismatch = errors.New("chunk store and vector index are out of sync")

// ErrModelMismatch signals that the persisted index was built with a
// different embedding model than the one configured for queries.
var ErrModelMismatch = errors.New("index embedding model does not match configured model")

// indexManifest records how the persisted index was built so that loads can
// fail fast on a model or dimension change instead of returning nonsense
// similarity results.
type indexManifest struct {
	EmbeddingModel string `json:"embedding_model"`
	Dimension      int    `json:"dimension"`
	ChunkCount     int    `json:"chunk_count"`
}

// kbSnapshot is one immutable generation of the knowledge base. Once built or
// loaded it is never mutated, so concurrent queries may share it freely.
type kbSnapshot struct {
	chunks   []string
	index    *flatIndex
	manifest indexManifest
}

// KnowledgeBase owns the chunk store and vector index behind a single atomic
// handle. Queries read whichever snapshot is current; a rebuild installs a
// whole new snapshot with one pointer swap, never an in-place mutation.
type KnowledgeBase struct {
	dataDir    string
	embedModel string

	cur    atomic.Pointer[kbSnapshot]
	loadMu sync.Mutex
}

// NewKnowledgeBase creates a KnowledgeBase over the given data directory. The
// persisted index, if any, is lazy-loaded on first use.
func NewKnowledgeBase(dataDir, embedModel string) *KnowledgeBase {
	return &KnowledgeBase{
		dataDir:    dataDir,
		embedModel: embedModel,
	}
}

// Search returns the texts of the k chunks nearest to queryVec, most similar
// first. Returns ErrNotIngested when no index has been built.
func (kb *KnowledgeBase) Search(queryVec []float32, k int) ([]string, error) {
	snap, err := kb.snapshot()
	if err != nil {
		return nil, err
	}
	positions, err := snap.index.search(queryVec, k)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(positions))
	for i, pos := range positions {
		texts[i] = snap.chunks[pos]
	}
	return texts, nil
}

// ChunkCount reports the number of chunks in the current snapshot, or 0 with
// ErrNotIngested when nothing is loaded.
func (kb *KnowledgeBase) ChunkCount() (int, error) {
	snap, err := kb.snapshot()
	if err != nil {
		return 0, err
	}
	return len(snap.chunks), nil
}

// Swap installs a freshly built snapshot. In-flight queries keep reading the
// snapshot they already hold.
func (kb *KnowledgeBase) Swap(s *kbSnapshot) {
	kb.cur.Store(s)
}

// snapshot returns the current snapshot, loading it from disk on first use.
func (kb *KnowledgeBase) snapshot() (*kbSnapshot, error) {
	if snap := kb.cur.Load(); snap != nil {
		return snap, nil
	}

	kb.loadMu.Lock()
	defer kb.loadMu.Unlock()
	if snap := kb.cur.Load(); snap != nil {
		return snap, nil
	}

	snap, err := loadSnapshot(kb.dataDir)
	if err != nil {
		return nil, err
	}
	if err := snap.validate(kb.embedModel); err != nil {
		return nil, err
	}
	kb.cur.Store(snap)
	return snap, nil
}

func (s *kbSnapshot) validate(wantModel string) error {
	if len(s.chunks) != s.index.count() {
		return fmt.Errorf("%w: %d chunks vs %d index rows", ErrIndexMismatch, len(s.chunks), s.index.count())
	}
	if s.manifest.ChunkCount != len(s.chunks) {
		return fmt.Errorf("%w: manifest says %d chunks, store has %d", ErrIndexMismatch, s.manifest.ChunkCount, len(s.chunks))
	}
	if wantModel != "" && s.manifest.EmbeddingModel != wantModel {
		return fmt.Errorf("%w: index built with %q, configured model is %q", ErrModelMismatch, s.manifest.EmbeddingModel, wantModel)
	}
	return nil
}

// loadSnapshot reads a persisted snapshot from dir. The chunk store, vector
// index and manifest are required to be present together; if any is missing
// the whole knowledge base is treated as absent.
func loadSnapshot(dir string) (*kbSnapshot, error) {
	for _, name := range []string{chunksFile, vectorsFile, manifestFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return nil, ErrNotIngested
		}
	}

	chunksBytes, err := os.ReadFile(filepath.Join(dir, chunksFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk store: %w", err)
	}
	var chunks []string
	if err := json.Unmarshal(chunksBytes, &chunks); err != nil {
		return nil, fmt.Errorf("failed to decode chunk store: %w", err)
	}

	manifestBytes, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read index manifest: %w", err)
	}
	var manifest indexManifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode index manifest: %w", err)
	}

	f, err := os.Open(filepath.Join(dir, vectorsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	defer f.Close()

	var rows [][]float32
	if err := gob.NewDecoder(f).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode vector index: %w", err)
	}

	index, err := newFlatIndex(manifest.Dimension)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := index.add(row); err != nil {
			return nil, fmt.Errorf("corrupt vector index: %w", err)
		}
	}

	return &kbSnapshot{chunks: chunks, index: index, manifest: manifest}, nil
}

// persistSnapshot writes a snapshot to dataDir atomically: everything goes
// into a temp directory first, which is then renamed over the live one, so a
// process restarting mid-build never observes a half-written index.
func persistSnapshot(dataDir string, s *kbSnapshot) error {
	tmpDir := dataDir + ".tmp"
	if err := os.RemoveAll(tmpDir); err != nil {
		return fmt.Errorf("failed to clear temp index dir: %w", err)
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("failed to create temp index dir: %w", err)
	}

	chunksBytes, err := json.Marshal(s.chunks)
	if err != nil {
		return fmt.Errorf("failed to encode chunk store: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, chunksFile), chunksBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write chunk store: %w", err)
	}

	manifestBytes, err := json.Marshal(s.manifest)
	if err != nil {
		return fmt.Errorf("failed to encode index manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, manifestFile), manifestBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write index manifest: %w", err)
	}

	f, err := os.Create(filepath.Join(tmpDir, vectorsFile))
	if err != nil {
		return fmt.Errorf("failed to create vector index file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(s.index.rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode vector index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close vector index file: %w", err)
	}

	if err := os.RemoveAll(dataDir); err != nil {
		return fmt.Errorf("failed to remove previous index: %w", err)
	}
	if err := os.Rename(tmpDir, dataDir); err != nil {
		return fmt.Errorf("failed to swap in new index: %w", err)
	}
	return nil
}
