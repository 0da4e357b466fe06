package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndexEmptyDirectoryFails(t *testing.T) {
	guidelinesDir := t.TempDir()
	dataDir := filepath.Join(t.TempDir(), "index")
	kb := NewKnowledgeBase(dataDir, "fake-embed")
	indexer := NewIndexingService(fakeEmbedder{}, kb, guidelinesDir, dataDir)

	err := indexer.BuildIndex(context.Background())
	require.Error(t, err)

	var ingErr *IngestionError
	assert.ErrorAs(t, err, &ingErr)
	assert.ErrorIs(t, err, ErrNoDocuments)

	// A failed build leaves no persisted index behind.
	_, err = kb.ChunkCount()
	assert.ErrorIs(t, err, ErrNotIngested)
}

func TestBuildIndexFromTextFiles(t *testing.T) {
	guidelinesDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(guidelinesDir, "a_gejala.txt"),
		[]byte("Gejala utama TB adalah batuk berdahak selama 2 minggu atau lebih."), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(guidelinesDir, "b_diagnosis.md"),
		[]byte("Diagnosis TB ditegakkan dengan pemeriksaan dahak mikroskopis."), 0o644))
	// Unsupported files are skipped, not indexed.
	require.NoError(t, os.WriteFile(
		filepath.Join(guidelinesDir, "notes.csv"),
		[]byte("ignored"), 0o644))

	dataDir := filepath.Join(t.TempDir(), "index")
	kb := NewKnowledgeBase(dataDir, "fake-embed")
	indexer := NewIndexingService(fakeEmbedder{}, kb, guidelinesDir, dataDir)
	require.NoError(t, indexer.BuildIndex(context.Background()))

	count, err := kb.ChunkCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	snap, err := loadSnapshot(dataDir)
	require.NoError(t, err)
	// Lexical walk order keeps the corpus deterministic.
	assert.Contains(t, snap.chunks[0], "Gejala utama TB")
	assert.Contains(t, snap.chunks[1], "Diagnosis TB")
	assert.Equal(t, "fake-embed", snap.manifest.EmbeddingModel)
}

func TestBuildIndexIsIdempotent(t *testing.T) {
	guidelinesDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(guidelinesDir, "pedoman.txt"),
		[]byte("Pedoman skrining TB nasional."), 0o644))

	dataDir := filepath.Join(t.TempDir(), "index")
	kb := NewKnowledgeBase(dataDir, "fake-embed")
	indexer := NewIndexingService(fakeEmbedder{}, kb, guidelinesDir, dataDir)

	require.NoError(t, indexer.BuildIndex(context.Background()))
	first, err := loadSnapshot(dataDir)
	require.NoError(t, err)

	require.NoError(t, indexer.BuildIndex(context.Background()))
	second, err := loadSnapshot(dataDir)
	require.NoError(t, err)

	assert.Equal(t, first.chunks, second.chunks)
	assert.Equal(t, first.manifest, second.manifest)
}

func TestBuildIndexSplitsOversizedPages(t *testing.T) {
	guidelinesDir := t.TempDir()
	longText := strings.TrimSpace(strings.Repeat("pedoman tuberkulosis nasional ", 200))
	require.Greater(t, len(longText), maxChunkChars)
	require.NoError(t, os.WriteFile(
		filepath.Join(guidelinesDir, "panjang.txt"), []byte(longText), 0o644))

	dataDir := filepath.Join(t.TempDir(), "index")
	kb := NewKnowledgeBase(dataDir, "fake-embed")
	indexer := NewIndexingService(fakeEmbedder{}, kb, guidelinesDir, dataDir)
	require.NoError(t, indexer.BuildIndex(context.Background()))

	count, err := kb.ChunkCount()
	require.NoError(t, err)
	assert.Greater(t, count, 1)

	snap, err := loadSnapshot(dataDir)
	require.NoError(t, err)
	for _, chunk := range snap.chunks {
		assert.LessOrEqual(t, len(chunk), maxChunkChars)
	}
}

func TestBuildIndexEmbeddingFailureAborts(t *testing.T) {
	guidelinesDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(guidelinesDir, "pedoman.txt"),
		[]byte("Pedoman skrining TB nasional."), 0o644))

	dataDir := filepath.Join(t.TempDir(), "index")
	kb := NewKnowledgeBase(dataDir, "fake-embed")
	indexer := NewIndexingService(failingEmbedder{}, kb, guidelinesDir, dataDir)

	err := indexer.BuildIndex(context.Background())
	require.Error(t, err)

	var ingErr *IngestionError
	assert.ErrorAs(t, err, &ingErr)
	_, err = kb.ChunkCount()
	assert.ErrorIs(t, err, ErrNotIngested)
}

func TestBuildIndexFailureKeepsPreviousIndex(t *testing.T) {
	guidelinesDir := t.TempDir()
	path := filepath.Join(guidelinesDir, "pedoman.txt")
	require.NoError(t, os.WriteFile(path, []byte("Pedoman skrining TB nasional."), 0o644))

	dataDir := filepath.Join(t.TempDir(), "index")
	kb := NewKnowledgeBase(dataDir, "fake-embed")
	require.NoError(t, NewIndexingService(fakeEmbedder{}, kb, guidelinesDir, dataDir).BuildIndex(context.Background()))

	// A later rebuild against an emptied directory fails and must not clobber
	// the snapshot already being served.
	require.NoError(t, os.Remove(path))
	err := NewIndexingService(fakeEmbedder{}, kb, guidelinesDir, dataDir).BuildIndex(context.Background())
	require.Error(t, err)

	count, err := kb.ChunkCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, isSupportedFile("pedoman.pdf"))
	assert.True(t, isSupportedFile("pedoman.txt"))
	assert.True(t, isSupportedFile("PEDOMAN.MD"))
	assert.False(t, isSupportedFile("pedoman.csv"))
	assert.False(t, isSupportedFile("pedoman"))
}
