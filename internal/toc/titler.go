package toc

import (
	"errors"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

const (
	// FallbackTitle names a section with no documents.
	FallbackTitle = "New Section"

	DefaultMaxFeatures = 30
	DefaultMaxTerms    = 2

	miscPrefix    = "Divers & "
	sectionPrefix = "Section : "
)

var (
	punctuation        = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	errEmptyVocabulary = errors.New("empty vocabulary")
)

// Titler names a cluster of documents after its most characteristic terms.
type Titler struct {
	maxFeatures int
	maxTerms    int
	tokenizer   analysis.Tokenizer
	stopFilter  analysis.TokenFilter
	logger      *slog.Logger
}

// NewTitler creates a titler using the English stopword list.
func NewTitler(logger *slog.Logger) *Titler {
	if logger == nil {
		logger = slog.Default()
	}

	stopWords := analysis.NewTokenMap()
	if err := stopWords.LoadBytes(en.EnglishStopWords); err != nil {
		logger.Warn("Failed to load stopwords, titles may contain filler words", "error", err)
	}

	return &Titler{
		maxFeatures: DefaultMaxFeatures,
		maxTerms:    DefaultMaxTerms,
		tokenizer:   bleveunicode.NewUnicodeTokenizer(),
		stopFilter:  stop.NewStopTokensFilter(stopWords),
		logger:      logger,
	}
}

// Title returns a short label such as "Solar & Wind turbines" for the given texts.
// It never fails: degenerate input falls back to a label built from the first text.
func (t *Titler) Title(texts []string) (title string) {
	if len(texts) == 0 {
		return FallbackTitle
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("Title synthesis panicked, using fallback", "panic", r)
			title = sectionPrefix + prefix(texts[0], 30) + "..."
		}
	}()

	ranked, err := t.rankTerms(texts)
	if err != nil {
		t.logger.Debug("Title synthesis failed, using fallback", "error", err)
		return sectionPrefix + prefix(texts[0], 30) + "..."
	}

	selected := selectTerms(ranked, t.maxTerms)
	parts := make([]string, len(selected))
	for i, term := range selected {
		parts[i] = capitalize(term)
	}
	title = strings.Join(parts, " & ")

	if utf8.RuneCountInString(title) <= 2 {
		return miscPrefix + prefix(texts[0], 20)
	}
	t.logger.Debug("Synthesized title", "title", title, "documents", len(texts))
	return title
}

type termScore struct {
	term  string
	score float64
}

// rankTerms computes TF-IDF weights of unigrams and bigrams, keeps the most frequent
// terms, sums each term's l2-normalized weight over the documents and sorts descending.
func (t *Titler) rankTerms(texts []string) ([]termScore, error) {
	counts := make([]map[string]int, len(texts))
	total := make(map[string]int)
	df := make(map[string]int)

	for i, text := range texts {
		counts[i] = make(map[string]int)
		for _, term := range t.terms(text) {
			counts[i][term]++
			total[term]++
		}
		for term := range counts[i] {
			df[term]++
		}
	}
	if len(total) == 0 {
		return nil, errEmptyVocabulary
	}

	vocab := make([]string, 0, len(total))
	for term := range total {
		vocab = append(vocab, term)
	}
	sort.Slice(vocab, func(a, b int) bool {
		if total[vocab[a]] != total[vocab[b]] {
			return total[vocab[a]] > total[vocab[b]]
		}
		return vocab[a] < vocab[b]
	})
	if len(vocab) > t.maxFeatures {
		vocab = vocab[:t.maxFeatures]
	}

	n := float64(len(texts))
	idf := make(map[string]float64, len(vocab))
	for _, term := range vocab {
		idf[term] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	sums := make(map[string]float64, len(vocab))
	row := make([]float64, len(vocab))
	for _, docCounts := range counts {
		var norm float64
		for j, term := range vocab {
			row[j] = float64(docCounts[term]) * idf[term]
			norm += row[j] * row[j]
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for j, term := range vocab {
			sums[term] += row[j] / norm
		}
	}

	ranked := make([]termScore, len(vocab))
	for i, term := range vocab {
		ranked[i] = termScore{term: term, score: sums[term]}
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].score != ranked[b].score {
			return ranked[a].score > ranked[b].score
		}
		return ranked[a].term < ranked[b].term
	})
	return ranked, nil
}

// terms lowercases the text, strips punctuation and returns its unigrams followed by its
// bigrams. Stopwords and single-character tokens are dropped before bigrams are formed.
func (t *Titler) terms(text string) []string {
	clean := punctuation.ReplaceAllString(strings.ToLower(text), " ")
	tokens := t.stopFilter.Filter(t.tokenizer.Tokenize([]byte(clean)))

	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if utf8.RuneCount(tok.Term) < 2 {
			continue
		}
		words = append(words, string(tok.Term))
	}

	terms := append([]string(nil), words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

// selectTerms greedily picks up to limit terms, skipping any term that shares a word with
// one already picked.
func selectTerms(ranked []termScore, limit int) []string {
	var selected []string
	used := make(map[string]bool)

	for _, candidate := range ranked {
		if len(selected) >= limit {
			break
		}
		words := strings.Fields(candidate.term)
		redundant := false
		for _, w := range words {
			if used[w] {
				redundant = true
				break
			}
		}
		if redundant {
			continue
		}
		selected = append(selected, candidate.term)
		for _, w := range words {
			used[w] = true
		}
	}
	return selected
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// prefix returns the first n characters of s.
func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
