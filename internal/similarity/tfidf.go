package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "into": {}, "is": {}, "it": {},
	"its": {}, "of": {}, "on": {}, "or": {}, "our": {}, "that": {}, "the": {}, "their": {},
	"this": {}, "to": {}, "was": {}, "we": {}, "were": {}, "which": {}, "will": {}, "with": {},
	"you": {}, "your": {}, "us": {}, "who": {}, "what": {}, "looking": {},
}

// Tokenize splits normalized text on anything that is not a letter or digit,
// dropping stop words and single-rune tokens.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Corpus carries document frequencies for IDF weighting. It is immutable once built.
type Corpus struct {
	docs int
	df   map[string]int
}

func NewCorpus(docs []string) *Corpus {
	c := &Corpus{df: make(map[string]int)}
	for _, doc := range docs {
		tokens := Tokenize(doc)
		if len(tokens) == 0 {
			continue
		}
		c.docs++
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			c.df[t]++
		}
	}
	return c
}

func (c *Corpus) Size() int {
	if c == nil {
		return 0
	}
	return c.docs
}

// IDF is ln(1 + N/(1+df)). Without a corpus every term weighs 1.
func (c *Corpus) IDF(term string) float64 {
	if c == nil || c.docs == 0 {
		return 1
	}
	return math.Log(1 + float64(c.docs)/float64(1+c.df[term]))
}

// Vector is a sparse term vector kept sorted by term so that every reduction
// over it happens in the same order.
type Vector struct {
	Terms   []string
	Weights []float64
	norm    float64
}

func (v Vector) Empty() bool { return len(v.Terms) == 0 }

func (v Vector) Norm() float64 { return v.norm }

// TermFrequency builds a TF vector, optionally scaled by the corpus IDF.
func TermFrequency(tokens []string, corpus *Corpus) Vector {
	if len(tokens) == 0 {
		return Vector{}
	}
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	v := Vector{Terms: terms, Weights: make([]float64, len(terms))}
	total := float64(len(tokens))
	var sq float64
	for i, t := range terms {
		w := float64(counts[t]) / total * corpus.IDF(t)
		v.Weights[i] = w
		sq += w * w
	}
	v.norm = math.Sqrt(sq)
	return v
}

// Cosine merges two sorted vectors.
func Cosine(a, b Vector) float64 {
	if a.Empty() || b.Empty() || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	i, j := 0, 0
	for i < len(a.Terms) && j < len(b.Terms) {
		switch {
		case a.Terms[i] == b.Terms[j]:
			dot += a.Weights[i] * b.Weights[j]
			i++
			j++
		case a.Terms[i] < b.Terms[j]:
			i++
		default:
			j++
		}
	}
	return clamp01(dot / (a.norm * b.norm))
}

// TextSimilarity is the cosine of the (IDF-weighted when corpus != nil) term vectors.
func TextSimilarity(a, b string, corpus *Corpus) float64 {
	return Cosine(TermFrequency(Tokenize(a), corpus), TermFrequency(Tokenize(b), corpus))
}
