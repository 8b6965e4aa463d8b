package script

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

//go:embed scripts/match_score.tengo
var defaultMatchScript string

// MatchInput is one side of a match comparison.
type MatchInput struct {
	Label      string
	Category   string
	Attributes map[string]string
}

func (m MatchInput) toMap() map[string]interface{} {
	attrs := make(map[string]interface{}, len(m.Attributes))
	for k, v := range m.Attributes {
		attrs[k] = v
	}
	return map[string]interface{}{
		"label":      m.Label,
		"category":   m.Category,
		"attributes": attrs,
	}
}

// Scorer rates library candidates against a gift idea using a tengo script.
// A scorer loaded from a file can follow edits to that file with Watch.
type Scorer struct {
	engine   *TengoEngine
	compiled atomic.Pointer[CompiledScript]
	path     string
}

// NewScorer compiles the scoring script at path, or the embedded default
// when path is empty.
func NewScorer(path string) (*Scorer, error) {
	content := defaultMatchScript
	name := "match_score"
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scoring script: %w", err)
		}
		content = string(raw)
		name = path
		slog.Info("Using external scoring script", "path", path)
	}
	s, err := NewScorerFromSource(name, content)
	if err != nil {
		return nil, err
	}
	s.path = path
	return s, nil
}

// NewScorerFromSource compiles the given scoring source.
func NewScorerFromSource(name, content string) (*Scorer, error) {
	engine := NewTengoEngine()
	compiled, err := engine.Compile(&Script{
		Name:    name,
		Content: content,
		Inputs:  []string{"idea", "candidate"},
	})
	if err != nil {
		return nil, err
	}
	s := &Scorer{engine: engine}
	s.compiled.Store(compiled)
	return s, nil
}

// Reload recompiles the script file. The previous script stays in use when
// the new one does not compile.
func (s *Scorer) Reload() error {
	if s.path == "" {
		return nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read scoring script: %w", err)
	}
	compiled, err := s.engine.Compile(&Script{
		Name:    s.path,
		Content: string(raw),
		Inputs:  []string{"idea", "candidate"},
	})
	if err != nil {
		return err
	}
	s.compiled.Store(compiled)
	slog.Info("Scoring script reloaded", "path", s.path)
	return nil
}

// Watch reloads the script whenever its file changes, until ctx is done.
// It returns immediately for the embedded script.
func (s *Scorer) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file system watcher: %w", err)
	}
	// Editors often replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}

	go func() {
		defer watcher.Close()
		target := filepath.Clean(s.path)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.Reload(); err != nil {
					slog.Error("Failed to reload scoring script", "path", s.path, "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("File system watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Score returns the script's result clamped to [0, 1].
func (s *Scorer) Score(ctx context.Context, idea, candidate MatchInput) (float64, error) {
	compiled := s.compiled.Load()
	out, err := s.engine.Execute(ctx, compiled, map[string]interface{}{
		"idea":      idea.toMap(),
		"candidate": candidate.toMap(),
	})
	if err != nil {
		return 0, err
	}

	var score float64
	switch v := out.Result.(type) {
	case float64:
		score = v
	case int64:
		score = float64(v)
	default:
		return 0, NewScriptError(ErrorTypeResult, compiled.Script.Name,
			fmt.Sprintf("result must be a number, got %T", out.Result), nil)
	}
	return min(max(score, 0), 1), nil
}
