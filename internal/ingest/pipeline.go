// Package ingest implements the bulk document ingestion pipeline: walk a
// directory tree, derive one draft Document per file via content extraction,
// and load the batch into the store idempotently.
//
// Idempotency is by construction: a file's document number is the fixed
// prefix plus its path relative to the chosen root, so the same file always
// produces the same number, and every run purges the previous run's rows
// (scoped by the owner marker) in the same transaction that writes the new
// batch. User-authored documents are never touched.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"mime"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aegisaudit/aegis/internal/extract"
	"github.com/aegisaudit/aegis/internal/record"
	"github.com/aegisaudit/aegis/internal/store"
)

const (
	// OwnerMarker is the sentinel Document.Owner value identifying
	// pipeline-created rows. The pre-batch purge is scoped to exactly this
	// value.
	OwnerMarker = "Ingested"

	// NumberPrefix starts every ingested document number, followed by the
	// file's root-relative path.
	NumberPrefix = "INGEST-"

	// FallbackTag keeps tag sets non-empty when entity extraction finds
	// nothing.
	FallbackTag = "ingested"
)

// State is the pipeline's position in its run.
type State string

const (
	StateIdle       State = "Idle"
	StateWalking    State = "Walking"
	StateExtracting State = "Extracting"
	StatePurging    State = "Purging"
	StateWriting    State = "Writing"
	StateDone       State = "Done"
	StateCancelled  State = "Cancelled"
	StateFailed     State = "Failed"
)

// Progress receives (processed, total, currentFileName) after each file.
type Progress func(processed, total int, name string)

// Result summarizes a completed run.
type Result struct {
	Created int
}

// Pipeline ingests a directory tree into the store. One Pipeline runs one
// ingestion at a time; files are processed sequentially, which bounds memory
// and keeps progress reporting ordered.
type Pipeline struct {
	store      *store.Store
	extractor  extract.ContentExtractor
	log        *zap.Logger
	now        func() time.Time
	onProgress Progress

	state State
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger attaches a logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithClock overrides the wall clock used for next-review dates.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithProgress registers a progress callback.
func WithProgress(fn Progress) Option {
	return func(p *Pipeline) { p.onProgress = fn }
}

// New creates a pipeline writing to st and extracting through ex.
func New(st *store.Store, ex extract.ContentExtractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     st,
		extractor: ex,
		log:       zap.NewNop(),
		now:       time.Now,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the pipeline's current (or terminal) state.
func (p *Pipeline) State() State {
	return p.state
}

// Ingest runs the full pipeline over root. A nil root means the caller
// aborted source selection: the run terminates in Cancelled, which is an
// outcome, not an error. Per-file extraction failures are logged and
// degrade to empty input; any store failure terminates the run in Failed.
// Once writing begins the batch commits or rolls back as a unit.
func (p *Pipeline) Ingest(ctx context.Context, root fs.FS) (Result, error) {
	if root == nil {
		p.state = StateCancelled
		p.log.Info("ingestion cancelled at source selection")
		return Result{}, nil
	}

	p.state = StateWalking
	files, err := walk(root)
	if err != nil {
		p.state = StateFailed
		return Result{}, fmt.Errorf("ingest: walk: %w", err)
	}
	p.log.Info("walked ingestion root", zap.Int("files", len(files)))

	p.state = StateExtracting
	docs := make([]record.Document, 0, len(files))
	for i, relPath := range files {
		docs = append(docs, p.buildDocument(ctx, root, relPath))
		if p.onProgress != nil {
			p.onProgress(i+1, len(files), path.Base(relPath))
		}
	}

	// Purge and write commit together: an interrupted run leaves the
	// previous batch fully intact.
	var purged int64
	p.state = StatePurging
	err = p.store.Transact(ctx, func(tx *sql.Tx) error {
		n, err := p.store.Documents.DeleteBy(ctx, tx, "owner", OwnerMarker)
		if err != nil {
			return err
		}
		purged = n

		p.state = StateWriting
		_, err = p.store.Documents.BulkAdd(ctx, tx, docs)
		return err
	})
	if err != nil {
		p.state = StateFailed
		return Result{}, fmt.Errorf("ingest: %w", err)
	}

	p.state = StateDone
	p.log.Info("ingestion complete",
		zap.Int("created", len(docs)),
		zap.Int64("purged", purged))
	return Result{Created: len(docs)}, nil
}

// buildDocument derives one draft Document from a file. Extraction failures
// are absorbed here: a single bad file must not abort the batch.
func (p *Pipeline) buildDocument(ctx context.Context, root fs.FS, relPath string) record.Document {
	name := path.Base(relPath)

	var extracted string
	if mediaType := mime.TypeByExtension(path.Ext(name)); strings.HasPrefix(mediaType, "image/") {
		data, err := fs.ReadFile(root, relPath)
		if err == nil {
			extracted, err = p.extractor.ExtractText(ctx, data, mediaType)
		}
		if err != nil {
			p.log.Warn("text extraction failed, proceeding without text",
				zap.String("file", relPath), zap.Error(err))
			extracted = ""
		}
	}

	return record.Document{
		Title:          strings.TrimSuffix(name, path.Ext(name)),
		DocNumber:      NumberPrefix + relPath,
		Revision:       1,
		Owner:          OwnerMarker,
		Status:         record.DocumentDraft,
		NextReviewDate: p.now(),
		Tags:           p.deriveTags(ctx, name, extracted),
	}
}

// deriveTags combines normalized filename tokens with extracted text, runs
// entity extraction over the result, and returns the lower-cased
// deduplicated entity texts. Never empty: the sentinel tag applies when
// extraction yields nothing.
func (p *Pipeline) deriveTags(ctx context.Context, name, extracted string) []string {
	tokens := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(name)
	combined := tokens + " " + extracted

	entities, err := p.extractor.ExtractEntities(ctx, combined)
	if err != nil {
		p.log.Warn("entity extraction failed, using fallback tag", zap.Error(err))
		entities = nil
	}

	lower := cases.Lower(language.Und)
	var tags []string
	seen := make(map[string]bool)
	for _, e := range entities {
		tag := lower.String(e.Text)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return []string{FallbackTag}
	}
	return tags
}

// walk enumerates every file under root as slash-separated root-relative
// paths. An explicit worklist replaces recursion, so arbitrarily deep trees
// cannot grow the call stack; the returned order is sorted and therefore
// deterministic for a given directory snapshot.
func walk(root fs.FS) ([]string, error) {
	var files []string
	pending := []string{"."}
	for len(pending) > 0 {
		dir := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		entries, err := fs.ReadDir(root, dir)
		if err != nil {
			return nil, fmt.Errorf("read dir %q: %w", dir, err)
		}
		for _, entry := range entries {
			p := path.Join(dir, entry.Name())
			if entry.IsDir() {
				pending = append(pending, p)
			} else {
				files = append(files, p)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
