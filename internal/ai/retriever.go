package ai

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Snippet is one retrieved context fragment with its relevance score.
type Snippet struct {
	Text   string
	Score  float64
	Source string
}

// Retriever finds workspace context relevant to a task description.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]Snippet, error)
}

// NopRetriever returns no context. Used when retrieval is disabled.
type NopRetriever struct{}

// Search always returns nothing.
func (NopRetriever) Search(context.Context, string, int) ([]Snippet, error) {
	return nil, nil
}

const (
	// maxRetrievableBytes caps the size of files the retriever will read.
	maxRetrievableBytes = 256 << 10

	// maxFilesScanned bounds a single search pass over a large workspace.
	maxFilesScanned = 4096

	// maxSnippetBytes caps one snippet's text.
	maxSnippetBytes = 400

	// maxHitsPerKeyword stops one repeated token from dominating the score.
	maxHitsPerKeyword = 8
)

// skipDirNames are directory names never worth scanning. Dot-directories
// are skipped separately.
var skipDirNames = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
}

// FileRetriever scores workspace text files by keyword overlap with the
// query. Deliberately crude: grep-grade relevance is enough to give a small
// local model something concrete to anchor on.
type FileRetriever struct {
	root string
}

// NewFileRetriever creates a retriever over the given workspace root.
func NewFileRetriever(root string) *FileRetriever {
	return &FileRetriever{root: root}
}

// Search walks the workspace, scores readable text files against the query
// keywords, and returns the topK best snippets ordered by descending score.
func (r *FileRetriever) Search(ctx context.Context, query string, topK int) ([]Snippet, error) {
	if topK <= 0 {
		return nil, nil
	}
	keywords := tokenize(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	var snippets []Snippet
	scanned := 0

	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are not worth failing the search
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := d.Name()
		if d.IsDir() {
			if path != r.root && (strings.HasPrefix(name, ".") || skipDirNames[name]) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(name, ".") {
			return nil
		}

		scanned++
		if scanned > maxFilesScanned {
			return fs.SkipAll
		}

		info, err := d.Info()
		if err != nil || info.Size() > maxRetrievableBytes {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil || bytes.IndexByte(data, 0) >= 0 {
			return nil
		}

		content := string(data)
		lower := strings.ToLower(content)
		lowerName := strings.ToLower(name)

		score := 0.0
		firstHit := -1
		for _, kw := range keywords {
			hits := strings.Count(lower, kw)
			if hits == 0 {
				continue
			}
			if hits > maxHitsPerKeyword {
				hits = maxHitsPerKeyword
			}
			score += float64(hits)
			if strings.Contains(lowerName, kw) {
				score += 2
			}
			if idx := strings.Index(lower, kw); firstHit == -1 || idx < firstHit {
				firstHit = idx
			}
		}
		if score == 0 {
			return nil
		}

		source := path
		if rel, relErr := filepath.Rel(r.root, path); relErr == nil {
			source = rel
		}
		snippets = append(snippets, Snippet{
			Text:   extractWindow(content, firstHit),
			Score:  score,
			Source: source,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(snippets, func(i, j int) bool {
		if snippets[i].Score != snippets[j].Score {
			return snippets[i].Score > snippets[j].Score
		}
		return snippets[i].Source < snippets[j].Source
	})
	if len(snippets) > topK {
		snippets = snippets[:topK]
	}
	return snippets, nil
}

// tokenize lowercases the query and keeps distinctive words: at least three
// characters and not generic filler.
func tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	seen := make(map[string]bool, len(fields))
	var keywords []string
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
	}
	return keywords
}

// stopwords are filler and generic task verbs that would match everywhere.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "into": true, "are": true, "was": true,
	"were": true, "will": true, "can": true, "should": true, "have": true,
	"has": true, "had": true, "not": true, "all": true, "any": true,
	"its": true, "out": true, "use": true, "using": true, "each": true,
	"make": true, "add": true, "create": true, "update": true, "new": true,
	"file": true, "files": true, "code": true, "please": true, "want": true,
	"need": true, "then": true, "than": true, "when": true, "where": true,
	"what": true, "our": true, "your": true, "you": true,
}

// extractWindow returns up to two lines either side of the first keyword
// hit, capped at maxSnippetBytes.
func extractWindow(content string, firstHit int) string {
	if firstHit < 0 || firstHit >= len(content) {
		firstHit = 0
	}

	start := firstHit
	for lines := 0; start > 0; start-- {
		if content[start-1] == '\n' {
			lines++
			if lines > 2 {
				break
			}
		}
	}

	end := firstHit
	for lines := 0; end < len(content); end++ {
		if content[end] == '\n' {
			lines++
			if lines > 2 {
				break
			}
		}
	}

	window := strings.TrimSpace(content[start:end])
	if len(window) > maxSnippetBytes {
		window = window[:maxSnippetBytes]
	}
	return window
}
