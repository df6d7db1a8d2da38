package services

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ekaya-inc/ekaya-profiler/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-profiler/pkg/embeddings"
	"github.com/ekaya-inc/ekaya-profiler/pkg/models"
)

const (
	maxSampleValues       = 10
	maxSampleTokens       = 10
	textSampleSize        = 1000
	largeColumnThreshold  = 10000
	largeColumnSampleRate = 0.1
	maxTokensPerValue     = 100
)

// createStringProfile handles short categorical text. The embedding hashes
// lower-cased character trigrams into 64 buckets and L2-normalizes the counts.
func createStringProfile(in ProfileInput) (*models.ColumnProfile, error) {
	values := in.Column.Values
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no string values", apperrors.ErrEmptySample)
	}

	minLen, maxLen, total := -1, 0, 0
	for _, v := range values {
		n := utf8.RuneCountInString(v)
		if minLen < 0 || n < minLen {
			minLen = n
		}
		maxLen = max(maxLen, n)
		total += n
	}

	embedding := make([]float64, models.StringEmbeddingDim)
	for _, v := range strideSample(values, textSampleSize) {
		for _, tri := range trigrams(v) {
			h := fnv.New32a()
			h.Write([]byte(tri))
			embedding[h.Sum32()%models.StringEmbeddingDim]++
		}
	}
	l2Normalize(embedding)

	p := newBaseProfile(in)
	p.StringStats = &models.StringStats{
		MinLength:    minLen,
		MaxLength:    maxLen,
		MeanLength:   float64(total) / float64(len(values)),
		SampleValues: distinctInOrder(values, maxSampleValues),
	}
	setEmbedding(p, embedding)
	return p, nil
}

// trigrams returns the character trigrams of "^" + lower(v) + "$".
func trigrams(v string) []string {
	runes := []rune("^" + strings.ToLower(v) + "$")
	if len(runes) < 3 {
		return []string{string(runes)}
	}
	out := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		out = append(out, string(runes[i:i+3]))
	}
	return out
}

// createNamedEntityProfile records which entity labels the sampled values
// carry. The embedding is the mean word vector over the sampled values.
func createNamedEntityProfile(in ProfileInput) (*models.ColumnProfile, error) {
	sample := strideSample(in.Column.Values, textSampleSize)
	if len(sample) == 0 {
		return nil, fmt.Errorf("%w: no entity values", apperrors.ErrEmptySample)
	}

	labelCounts := make(map[string]int)
	var rows [][]float64
	for _, v := range sample {
		if label, ok := in.Models.NER.Recognize(v); ok {
			labelCounts[label]++
		}
		if vec, ok := in.Models.WordVectors.Mean(embeddings.Tokenize(v)); ok {
			rows = append(rows, vec)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no sampled entity has an in-vocabulary token", apperrors.ErrEmptySample)
	}

	ratios := make(map[string]float64, len(labelCounts))
	for label, n := range labelCounts {
		ratios[label] = float64(n) / float64(len(sample))
	}

	p := newBaseProfile(in)
	p.NamedEntityStats = &models.NamedEntityStats{
		LabelRatios:  ratios,
		SampleValues: distinctInOrder(in.Column.Values, maxSampleValues),
	}
	setEmbedding(p, meanRows(rows))
	return p, nil
}

// nlSampleSize is 10% of the values for large columns, else up to 1000.
func nlSampleSize(n int) int {
	if n > largeColumnThreshold {
		return int(float64(n) * largeColumnSampleRate)
	}
	return min(n, textSampleSize)
}

// createNaturalLanguageProfile embeds free text. Each sampled value becomes
// the mean vector of up to 100 of its tokens; values with no in-vocabulary
// token are left out. The rows go through the embedding network one by one,
// are mean-pooled, and the pooled vector goes through the scaling network.
func createNaturalLanguageProfile(in ProfileInput) (*models.ColumnProfile, error) {
	values := in.Column.Values
	sample := strideSample(values, nlSampleSize(len(values)))

	tokenCounts := make(map[string]int)
	totalTokens := 0
	var hidden [][]float64

	for _, v := range sample {
		tokens := embeddings.Tokenize(v)
		totalTokens += len(tokens)
		for _, tok := range tokens {
			tokenCounts[strings.ToLower(tok)]++
		}

		row, ok := in.Models.WordVectors.Mean(capTokens(tokens))
		if !ok {
			continue
		}
		h, err := in.Models.NLEmbedding.Forward(row)
		if err != nil {
			return nil, fmt.Errorf("embedding network: %w", err)
		}
		hidden = append(hidden, h)
	}
	if len(hidden) == 0 {
		return nil, fmt.Errorf("%w: no sampled value has an in-vocabulary token", apperrors.ErrEmptySample)
	}

	embedding, err := in.Models.NLScaling.Forward(meanRows(hidden))
	if err != nil {
		return nil, fmt.Errorf("scaling network: %w", err)
	}

	p := newBaseProfile(in)
	p.TextStats = &models.TextStats{
		VocabularySize:     len(tokenCounts),
		MeanTokensPerValue: float64(totalTokens) / float64(len(sample)),
		SampleTokens:       topTokens(tokenCounts, maxSampleTokens),
	}
	setEmbedding(p, embedding)
	return p, nil
}

// capTokens keeps at most maxTokensPerValue evenly spaced tokens of a value.
func capTokens(tokens []string) []string {
	return strideSample(tokens, maxTokensPerValue)
}

// topTokens returns the n most frequent tokens, ties broken lexically.
func topTokens(counts map[string]int, n int) []string {
	tokens := make([]string, 0, len(counts))
	for tok := range counts {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return tokens
}

// distinctInOrder returns the first n distinct values in column order.
func distinctInOrder(values []string, n int) []string {
	seen := make(map[string]struct{}, n)
	out := make([]string, 0, n)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}
