package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/tmc/langchaingo/textsplitter"
)

// ErrNoDocuments signals that the guidelines directory held nothing to index.
var ErrNoDocuments = errors.New("no guideline documents found")

// IngestionError is a fatal corpus-build failure. The whole build is aborted
// rather than skipping the offending document: a partial corpus would produce
// silently incomplete retrieval.
type IngestionError struct {
	Path string
	Err  error
}

func (e *IngestionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("ingestion failed for %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("ingestion failed: %v", e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Pages longer than this are split before embedding so a single retrieved
// chunk cannot blow the generation prompt's context budget.
const (
	maxChunkChars     = 2000
	chunkOverlapChars = 200
)

// IndexingService builds the guideline knowledge base: it extracts per-page
// text from every document under the guidelines directory, embeds each chunk,
// and persists the chunk store and vector index as one atomic unit.
type IndexingService struct {
	embedder      Embedder
	kb            *KnowledgeBase
	guidelinesDir string
	dataDir       string

	// Serializes rebuilds; queries are unaffected because they read the
	// previous snapshot until the swap.
	mu sync.Mutex
}

// NewIndexingService creates an indexing service.
func NewIndexingService(embedder Embedder, kb *KnowledgeBase, guidelinesDir, dataDir string) *IndexingService {
	return &IndexingService{
		embedder:      embedder,
		kb:            kb,
		guidelinesDir: guidelinesDir,
		dataDir:       dataDir,
	}
}

// BuildIndex rebuilds the whole knowledge base from the guidelines directory.
// On success the persisted index is replaced atomically and the in-process
// snapshot is swapped; on any failure the previous index stays untouched.
func (s *IndexingService) BuildIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Printf("INDEXER: Starting corpus build from: %s", s.guidelinesDir)

	chunks, err := s.collectChunks()
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return &IngestionError{Err: ErrNoDocuments}
	}
	log.Printf("INDEXER: Extracted %d chunks. Embedding with model %s...", len(chunks), s.embedder.Model())

	var index *flatIndex
	for i, chunk := range chunks {
		vec, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return &IngestionError{Err: fmt.Errorf("could not embed chunk %d: %w", i, err)}
		}
		if index == nil {
			if index, err = newFlatIndex(len(vec)); err != nil {
				return &IngestionError{Err: err}
			}
		}
		if err := index.add(vec); err != nil {
			return &IngestionError{Err: fmt.Errorf("could not add chunk %d to index: %w", i, err)}
		}
	}

	snap := &kbSnapshot{
		chunks: chunks,
		index:  index,
		manifest: indexManifest{
			EmbeddingModel: s.embedder.Model(),
			Dimension:      index.dim,
			ChunkCount:     len(chunks),
		},
	}
	if err := persistSnapshot(s.dataDir, snap); err != nil {
		return &IngestionError{Err: err}
	}
	s.kb.Swap(snap)

	log.Printf("INDEXER: Corpus build done: %d chunks indexed.", len(chunks))
	return nil
}

// collectChunks walks the guidelines directory and returns one chunk per
// document page, in walk order. Oversized pages are split further.
func (s *IndexingService) collectChunks() ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(maxChunkChars),
		textsplitter.WithChunkOverlap(chunkOverlapChars),
	)

	var chunks []string
	err := filepath.Walk(s.guidelinesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return &IngestionError{Path: path, Err: err}
		}
		if info.IsDir() || !isSupportedFile(path) {
			return nil
		}

		pages, err := ExtractPages(path)
		if err != nil {
			return &IngestionError{Path: path, Err: err}
		}
		for _, page := range pages {
			page = strings.TrimSpace(page)
			if page == "" {
				continue
			}
			if len(page) <= maxChunkChars {
				chunks = append(chunks, page)
				continue
			}
			parts, err := splitter.SplitText(page)
			if err != nil {
				return &IngestionError{Path: path, Err: err}
			}
			chunks = append(chunks, parts...)
		}
		return nil
	})
	if err != nil {
		var ingErr *IngestionError
		if errors.As(err, &ingErr) {
			return nil, ingErr
		}
		return nil, &IngestionError{Err: err}
	}
	return chunks, nil
}

// WatchGuidelines starts a long-running loop that rebuilds the index whenever
// a guideline document is added, modified or removed. Blocks until ctx is
// cancelled.
func (s *IndexingService) WatchGuidelines(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isSupportedFile(event.Name) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
					event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					log.Printf("WATCHER: Guidelines changed (%s). Rebuilding index...", event)
					if err := s.BuildIndex(ctx); err != nil {
						log.Printf("WATCHER ERROR: Rebuild failed: %v", err)
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				log.Println("WATCHER: Context cancelled, shutting down watcher.")
				return
			}
		}
	}()

	log.Printf("WATCHER: Watching guidelines directory: %s", s.guidelinesDir)
	if err := watcher.Add(s.guidelinesDir); err != nil {
		log.Printf("WATCHER ERROR: Failed to add path to watcher: %v", err)
	}

	<-ctx.Done()
}
