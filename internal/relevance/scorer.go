// Package relevance implements the multi-factor relevance scoring
// algorithm. A browsing context is scored against one stored item by
// combining five weighted sub-scores: URL/domain similarity, category
// equality, keyword overlap, concept overlap, and content-text
// similarity. Each sub-score is independently in [0, 1] and the weights
// sum to 1.0.
package relevance

import (
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/runger/recall/internal/content"
)

// Default scoring weights.
const (
	DefaultWeightURL      = 0.15
	DefaultWeightCategory = 0.20
	DefaultWeightKeywords = 0.25
	DefaultWeightConcepts = 0.25
	DefaultWeightContent  = 0.15
)

// Reason thresholds. A sub-score above its threshold appends a
// human-readable reason; reasons are advisory and never feed back into
// the math.
const (
	reasonThresholdURL      = 0.5
	reasonThresholdKeywords = 0.3
	reasonThresholdConcepts = 0.3
	reasonThresholdContent  = 0.2
)

// URL sub-score levels.
const (
	urlScoreExactHost  = 0.8
	urlScoreSameDomain = 0.6
	urlPathOverlapMax  = 0.4
)

// significantWordLimit caps how many significant words per side feed the
// content-text similarity term.
const significantWordLimit = 100

// weightSumTolerance is the allowed deviation of the weight sum from 1.0.
const weightSumTolerance = 1e-6

// Weights configures the five scoring weights. They must sum to 1.0.
type Weights struct {
	URL      float64
	Category float64
	Keywords float64
	Concepts float64
	Content  float64
}

// DefaultWeights returns the default scoring weights.
func DefaultWeights() Weights {
	return Weights{
		URL:      DefaultWeightURL,
		Category: DefaultWeightCategory,
		Keywords: DefaultWeightKeywords,
		Concepts: DefaultWeightConcepts,
		Content:  DefaultWeightContent,
	}
}

// sum returns the total of all weights.
func (w Weights) sum() float64 {
	return w.URL + w.Category + w.Keywords + w.Concepts + w.Content
}

// Config configures the scorer.
type Config struct {
	Weights Weights
	Logger  *slog.Logger
}

// DefaultConfig returns the default scorer configuration.
func DefaultConfig() Config {
	return Config{
		Weights: DefaultWeights(),
		Logger:  slog.Default(),
	}
}

// Result is the outcome of scoring one item against one context.
type Result struct {
	// Score is the weighted combined score in [0, 1], rounded to two
	// decimals.
	Score float64

	// Reasons are the human-readable match explanations, in signal
	// order.
	Reasons []string
}

// Scorer computes weighted similarity between a browsing context and a
// stored item. It is stateless and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer. Weights that do not sum to 1.0 are a
// configuration error and fail fast.
func NewScorer(cfg Config) (*Scorer, error) {
	zero := Weights{}
	if cfg.Weights == zero {
		cfg.Weights = DefaultWeights()
	}
	if math.Abs(cfg.Weights.sum()-1.0) > weightSumTolerance {
		return nil, fmt.Errorf("relevance weights must sum to 1.0, got %.4f", cfg.Weights.sum())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scorer{cfg: cfg}, nil
}

// Weights returns the configured weights.
func (s *Scorer) Weights() Weights { return s.cfg.Weights }

// Score computes the relevance of item to ctx. A malformed item (no
// identifier, or no scoreable fields at all) yields a ScoringError so
// the caller can skip it without failing the batch. Empty inputs on one
// side of any single dimension contribute 0 for that dimension only.
func (s *Scorer) Score(ctx content.BrowsingContext, item content.StoredItem) (Result, error) {
	if item.ID == "" {
		return Result{}, &content.ScoringError{ItemID: item.ID, Reason: "missing item identifier"}
	}
	if item.URL == "" && item.Title == "" && item.Content == "" &&
		len(item.Tags) == 0 && len(item.Concepts) == 0 {
		return Result{}, &content.ScoringError{ItemID: item.ID, Reason: "no scoreable fields"}
	}

	w := s.cfg.Weights
	var reasons []string

	urlScore, host := urlSimilarity(ctx.URL, item.URL)
	if urlScore > reasonThresholdURL {
		reasons = append(reasons, "Related site: "+host)
	}

	catScore := 0.0
	if ctx.Category != "" && ctx.Category == item.Category {
		catScore = 1.0
		reasons = append(reasons, "Same category: "+string(ctx.Category))
	}

	kwScore := jaccardFold(ctx.Keywords, item.Tags)
	if kwScore > reasonThresholdKeywords {
		reasons = append(reasons, "Shared keywords: "+sharedPreview(ctx.Keywords, item.Tags))
	}

	conceptScore := jaccardFold(ctx.Concepts, item.Concepts)
	if conceptScore > reasonThresholdConcepts {
		reasons = append(reasons, "Shared concepts: "+sharedPreview(ctx.Concepts, item.Concepts))
	}

	textScore := contentSimilarity(ctx.Content, item.Content)
	if textScore > reasonThresholdContent {
		reasons = append(reasons, "Similar content")
	}

	combined := w.URL*urlScore +
		w.Category*catScore +
		w.Keywords*kwScore +
		w.Concepts*conceptScore +
		w.Content*textScore

	return Result{
		Score:   round2(clamp01(combined)),
		Reasons: reasons,
	}, nil
}

// urlSimilarity scores URL relatedness and returns the item hostname for
// reason text. Exact hostname match scores 0.8, a shared registrable
// domain 0.6, otherwise path-segment overlap scaled into [0, 0.4].
// Unparseable or empty URLs score 0.
func urlSimilarity(contextURL, itemURL string) (float64, string) {
	if contextURL == "" || itemURL == "" {
		return 0, ""
	}
	cu, err := url.Parse(contextURL)
	if err != nil || cu.Hostname() == "" {
		return 0, ""
	}
	iu, err := url.Parse(itemURL)
	if err != nil || iu.Hostname() == "" {
		return 0, ""
	}

	cHost := strings.ToLower(cu.Hostname())
	iHost := strings.ToLower(iu.Hostname())

	if cHost == iHost {
		return urlScoreExactHost, iHost
	}
	if registrableDomain(cHost) == registrableDomain(iHost) {
		return urlScoreSameDomain, iHost
	}
	return urlPathOverlapMax * pathOverlap(cu.Path, iu.Path), iHost
}

// registrableDomain approximates eTLD+1 by taking the last two host
// labels, or three when the suffix looks like a two-part public suffix
// (co.uk, com.au, ...).
func registrableDomain(host string) string {
	labels := strings.Split(host, ".")
	n := len(labels)
	if n <= 2 {
		return host
	}
	if n >= 3 && twoPartSuffixes[labels[n-2]+"."+labels[n-1]] {
		return strings.Join(labels[n-3:], ".")
	}
	return strings.Join(labels[n-2:], ".")
}

var twoPartSuffixes = map[string]bool{
	"co.uk": true, "org.uk": true, "ac.uk": true, "gov.uk": true,
	"com.au": true, "net.au": true, "org.au": true,
	"co.jp": true, "co.nz": true, "co.kr": true, "co.in": true,
	"com.br": true, "com.cn": true, "com.mx": true,
}

// pathOverlap is the Jaccard similarity of non-empty path segments.
func pathOverlap(a, b string) float64 {
	segA := splitPath(a)
	segB := splitPath(b)
	return jaccard(segA, segB)
}

func splitPath(p string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out[strings.ToLower(seg)] = struct{}{}
		}
	}
	return out
}

// jaccardFold computes case-insensitive Jaccard similarity of two string
// slices. Either side empty yields 0.
func jaccardFold(a, b []string) float64 {
	return jaccard(foldSet(a), foldSet(b))
}

func foldSet(ss []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

// jaccard computes |A∩B| / |A∪B|. Either side empty yields 0.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// contentSimilarity is the Jaccard similarity of the significant-word
// sets of both texts.
func contentSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return jaccard(significantWords(a), significantWords(b))
}

// significantWords extracts up to significantWordLimit distinct words of
// length > 3 that are not stop words, ranked by frequency so the limit
// keeps the most representative terms.
func significantWords(text string) map[string]struct{} {
	counts := make(map[string]int)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), isWordBreak) {
		if len(w) <= 3 || stopWords[w] {
			continue
		}
		counts[w]++
	}
	if len(counts) <= significantWordLimit {
		out := make(map[string]struct{}, len(counts))
		for w := range counts {
			out[w] = struct{}{}
		}
		return out
	}

	type wordCount struct {
		word  string
		count int
	}
	ranked := make([]wordCount, 0, len(counts))
	for w, c := range counts {
		ranked = append(ranked, wordCount{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	out := make(map[string]struct{}, significantWordLimit)
	for _, wc := range ranked[:significantWordLimit] {
		out[wc.word] = struct{}{}
	}
	return out
}

func isWordBreak(r rune) bool {
	return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
}

// sharedPreview lists up to three shared entries for reason text.
func sharedPreview(a, b []string) string {
	bSet := foldSet(b)
	var shared []string
	seen := make(map[string]struct{})
	for _, s := range a {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		if _, ok := bSet[key]; ok {
			seen[key] = struct{}{}
			shared = append(shared, key)
			if len(shared) == 3 {
				break
			}
		}
	}
	return strings.Join(shared, ", ")
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// stopWords is the stop-word list for content-text similarity.
var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"been": true, "were": true, "they": true, "their": true, "them": true,
	"there": true, "these": true, "those": true, "then": true, "than": true,
	"what": true, "when": true, "where": true, "which": true, "while": true,
	"will": true, "would": true, "could": true, "should": true, "about": true,
	"into": true, "over": true, "under": true, "after": true, "before": true,
	"between": true, "through": true, "during": true, "also": true,
	"because": true, "being": true, "does": true, "doing": true, "each": true,
	"more": true, "most": true, "other": true, "some": true, "such": true,
	"only": true, "same": true, "very": true, "your": true, "yours": true,
	"here": true, "just": true, "like": true, "make": true, "made": true,
	"many": true, "much": true, "still": true, "even": true, "well": true,
}
