package embeddings

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"
	"github.com/klauspost/compress/gzip"

	"github.com/ekaya-inc/ekaya-profiler/pkg/apperrors"
)

const maxVectorLineBytes = 1 << 20

// WordVectors is a read-only word embedding table.
type WordVectors struct {
	dim     int
	vectors map[string][]float32
	version string
}

// NewWordVectors builds a table from in-memory vectors. All vectors must share
// the same dimension.
func NewWordVectors(vectors map[string][]float32) (*WordVectors, error) {
	wv := &WordVectors{vectors: make(map[string][]float32, len(vectors)), version: "inline"}
	for word, vec := range vectors {
		if wv.dim == 0 {
			wv.dim = len(vec)
		}
		if len(vec) != wv.dim || wv.dim == 0 {
			return nil, fmt.Errorf("%w: vector for %q has dimension %d, want %d", apperrors.ErrModelInvalid, word, len(vec), wv.dim)
		}
		wv.vectors[word] = vec
	}
	return wv, nil
}

// LoadWordVectors reads a text word-vector file: one "<word> <v1> ... <vD>"
// line per word, with an optional "<count> <dim>" first line. Files ending in
// ".gz" are decompressed on the fly.
func LoadWordVectors(path string) (*WordVectors, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrModelNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	digest := newDigestReader(f)
	var r io.Reader = digest
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(digest)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrModelInvalid, path, err)
		}
		defer gz.Close()
		r = gz
	}

	wv, err := parseWordVectors(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	// Drain so the digest covers the whole file.
	if _, err := io.Copy(io.Discard, digest); err != nil {
		return nil, err
	}
	wv.version = digest.version()
	return wv, nil
}

func parseWordVectors(r io.Reader) (*WordVectors, error) {
	wv := &WordVectors{vectors: make(map[string][]float32)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxVectorLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if lineNo == 1 && len(fields) == 2 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				dim, err := strconv.Atoi(fields[1])
				if err != nil || dim <= 0 {
					return nil, fmt.Errorf("%w: bad header line %q", apperrors.ErrModelInvalid, scanner.Text())
				}
				wv.dim = dim
				continue
			}
		}

		if wv.dim == 0 {
			wv.dim = len(fields) - 1
		}
		if len(fields)-1 != wv.dim {
			return nil, fmt.Errorf("%w: line %d has %d components, want %d", apperrors.ErrModelInvalid, lineNo, len(fields)-1, wv.dim)
		}

		vec := make([]float32, wv.dim)
		for i, s := range fields[1:] {
			v, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", apperrors.ErrModelInvalid, lineNo, err)
			}
			vec[i] = float32(v)
		}
		wv.vectors[fields[0]] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrModelInvalid, err)
	}
	if len(wv.vectors) == 0 {
		return nil, fmt.Errorf("%w: no vectors", apperrors.ErrModelInvalid)
	}
	return wv, nil
}

// Dim returns the vector dimension.
func (w *WordVectors) Dim() int { return w.dim }

// Len returns the vocabulary size.
func (w *WordVectors) Len() int { return len(w.vectors) }

// Version identifies the artifact the table was loaded from.
func (w *WordVectors) Version() string { return w.version }

// Lookup returns the vector for token. It tries the token as written, then
// lower-cased, then the singular of the lower-cased form.
func (w *WordVectors) Lookup(token string) ([]float32, bool) {
	if vec, ok := w.vectors[token]; ok {
		return vec, true
	}
	lower := strings.ToLower(token)
	if vec, ok := w.vectors[lower]; ok {
		return vec, true
	}
	if singular := inflection.Singular(lower); singular != lower {
		if vec, ok := w.vectors[singular]; ok {
			return vec, true
		}
	}
	return nil, false
}

// Contains reports whether Lookup would find token.
func (w *WordVectors) Contains(token string) bool {
	_, ok := w.Lookup(token)
	return ok
}

// Mean averages the vectors of the in-vocabulary tokens. ok is false when no
// token is in the vocabulary.
func (w *WordVectors) Mean(tokens []string) (mean []float64, ok bool) {
	mean = make([]float64, w.dim)
	n := 0
	for _, tok := range tokens {
		vec, found := w.Lookup(tok)
		if !found {
			continue
		}
		for i, v := range vec {
			mean[i] += float64(v)
		}
		n++
	}
	if n == 0 {
		return nil, false
	}
	for i := range mean {
		mean[i] /= float64(n)
	}
	return mean, true
}
