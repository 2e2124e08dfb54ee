// Package pipeline drives the translation of a whole LaTeX document: it
// splits the body into chunks, hands each chunk to a Translator, and
// reassembles the translated chunks into the original template.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/texsplit/internal/chunker"
	"github.com/valpere/texsplit/internal/latex"
	"github.com/valpere/texsplit/internal/postprocess"
	"github.com/valpere/texsplit/internal/translator"
)

// Translator translates one chunk under a session.
type Translator interface {
	Translate(ctx context.Context, sess *translator.Session, index int, chunk string) (string, error)
}

// Memory is a per-chunk translation memory.
type Memory interface {
	GetCachedTranslation(ctx context.Context, sourceText, sourceLang, targetLang string) (string, bool, error)
	SaveToMemory(ctx context.Context, sourceText, sourceLang, targetLang, finalText string) error
}

// Checkpoint stores per-chunk progress of a run so it can be resumed.
type Checkpoint interface {
	GetRunChunks(ctx context.Context, runID string) (map[int]string, error)
	SaveRunChunk(ctx context.Context, runID string, index int, translated string) error
}

// Origin tells where a chunk's translation came from.
type Origin string

const (
	OriginService    Origin = "service"
	OriginMemory     Origin = "memory"
	OriginCheckpoint Origin = "checkpoint"
	OriginSkipped    Origin = "skipped"
)

// Event reports one finished chunk.
type Event struct {
	Index  int
	Total  int
	Origin Origin
	Usage  translator.Usage
}

type Options struct {
	// MaxChars is the chunk length limit in code points.
	MaxChars      int
	StripComments bool
	MergeLines    bool
	// MaxChunks translates only the first N chunks and keeps the rest in
	// the source language. Zero means all.
	MaxChunks int
	// Parallel > 1 translates that many chunks at once when the session is
	// stateless.
	Parallel   int
	Memory     Memory
	Checkpoint Checkpoint
	// Progress is called after each chunk. In parallel mode it may be
	// called from several goroutines.
	Progress func(Event)
	Logger   *slog.Logger
}

// ErrEmptyTranslation is the cause of a ChunkError when a chunk with text
// came back blank.
var ErrEmptyTranslation = errors.New("empty translation")

// ChunkError reports the chunk whose translation failed a run.
type ChunkError struct {
	Index int
	Total int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d of %d: %v", e.Index, e.Total, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

type Pipeline struct {
	tr     Translator
	opts   Options
	logger *slog.Logger
}

func New(tr Translator, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{tr: tr, opts: opts, logger: logger}
}

// Prepare applies the enabled preprocessing steps to source.
func (p *Pipeline) Prepare(source string) string {
	if p.opts.StripComments {
		source = latex.StripComments(source)
	}
	if p.opts.MergeLines {
		source = latex.MergeSoftLines(source)
	}
	return source
}

// Run translates source and returns the reassembled document. The session
// is closed when Run returns. No output is produced unless every chunk
// translated.
func (p *Pipeline) Run(ctx context.Context, source string, sess *translator.Session) (string, error) {
	defer sess.Close()

	doc, err := chunker.Split(p.Prepare(source), p.opts.MaxChars)
	if err != nil {
		return "", err
	}
	p.logger.Info("document split", "run", sess.ID, "chunks", len(doc.Chunks))

	translated, err := p.TranslateDocument(ctx, doc, sess)
	if err != nil {
		return "", err
	}
	return doc.Reassemble(translated)
}

// TranslateDocument translates the chunks of doc and returns them in order.
func (p *Pipeline) TranslateDocument(ctx context.Context, doc *chunker.Document, sess *translator.Session) ([]string, error) {
	total := len(doc.Chunks)
	out := make([]string, total)

	done := map[int]string{}
	if p.opts.Checkpoint != nil {
		var err error
		if done, err = p.opts.Checkpoint.GetRunChunks(ctx, sess.ID); err != nil {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if len(done) > 0 {
			p.logger.Info("resuming run", "run", sess.ID, "done", len(done), "chunks", total)
		}
	}

	limit := total
	if p.opts.MaxChunks > 0 && p.opts.MaxChunks < total {
		limit = p.opts.MaxChunks
		copy(out[limit:], doc.Chunks[limit:])
		p.logger.Warn("translating a prefix of the document", "chunks", limit, "of", total)
	}

	parallel := p.opts.Parallel
	if parallel > 1 && !sess.Stateless() {
		p.logger.Warn("session keeps context between chunks, translating sequentially", "parallel", parallel)
		parallel = 1
	}

	if parallel <= 1 {
		for i := 0; i < limit; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			text, err := p.chunk(ctx, sess, i, total, doc.Chunks[i], done)
			if err != nil {
				return nil, err
			}
			out[i] = text
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := 0; i < limit; i++ {
		g.Go(func() error {
			text, err := p.chunk(gctx, sess, i, total, doc.Chunks[i], done)
			if err != nil {
				return err
			}
			out[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) chunk(ctx context.Context, sess *translator.Session, index, total int, source string, done map[int]string) (string, error) {
	log := p.logger.With("run", sess.ID, "chunk", index, "total", total)

	if blank(source) {
		p.report(index, total, OriginSkipped, sess)
		return source, nil
	}

	if text, ok := done[index]; ok && !blank(text) {
		if err := sess.Record(source, text); err != nil {
			return "", &ChunkError{Index: index, Total: total, Err: err}
		}
		p.report(index, total, OriginCheckpoint, sess)
		return text, nil
	}

	if p.opts.Memory != nil {
		text, ok, err := p.opts.Memory.GetCachedTranslation(ctx, source, sess.SourceLang, sess.TargetLang)
		if err != nil {
			log.Warn("translation memory lookup failed", "error", err)
		}
		if ok && blank(text) {
			log.Warn("ignoring empty translation memory entry")
			ok = false
		}
		if ok {
			text = postprocess.RestoreEdges(source, text)
			if err := sess.Record(source, text); err != nil {
				return "", &ChunkError{Index: index, Total: total, Err: err}
			}
			p.checkpoint(ctx, sess.ID, index, text, log)
			p.report(index, total, OriginMemory, sess)
			return text, nil
		}
	}

	text, err := p.tr.Translate(ctx, sess, index, source)
	if err != nil {
		return "", &ChunkError{Index: index, Total: total, Err: err}
	}
	if blank(text) {
		return "", &ChunkError{Index: index, Total: total, Err: ErrEmptyTranslation}
	}
	text = postprocess.RestoreEdges(source, text)

	if p.opts.Memory != nil {
		if err := p.opts.Memory.SaveToMemory(ctx, source, sess.SourceLang, sess.TargetLang, text); err != nil {
			log.Warn("failed to save translation memory", "error", err)
		}
	}
	p.checkpoint(ctx, sess.ID, index, text, log)
	p.report(index, total, OriginService, sess)
	log.Info("chunk translated", "chars", len([]rune(source)))
	return text, nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func (p *Pipeline) checkpoint(ctx context.Context, runID string, index int, text string, log *slog.Logger) {
	if p.opts.Checkpoint == nil {
		return
	}
	if err := p.opts.Checkpoint.SaveRunChunk(ctx, runID, index, text); err != nil {
		log.Warn("failed to save checkpoint", "error", err)
	}
}

func (p *Pipeline) report(index, total int, origin Origin, sess *translator.Session) {
	if p.opts.Progress == nil {
		return
	}
	p.opts.Progress(Event{Index: index, Total: total, Origin: origin, Usage: sess.Usage()})
}
