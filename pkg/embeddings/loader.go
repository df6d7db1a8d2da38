package embeddings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-profiler/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-profiler/pkg/config"
	"github.com/ekaya-inc/ekaya-profiler/pkg/logging"
	"github.com/ekaya-inc/ekaya-profiler/pkg/retry"
)

// Models is the read-only model state of one partition. A fresh instance is
// loaded per partition and passed to every per-column call.
type Models struct {
	WordVectors *WordVectors
	NLEmbedding *Network
	NLScaling   *Network
	NER         *Recognizer
}

// NLEmbeddingDim is the dimension of natural-language text embeddings.
func (m *Models) NLEmbeddingDim() int {
	return m.NLScaling.OutputDim()
}

// Validate checks that the networks chain onto the word vectors.
func (m *Models) Validate() error {
	if m.NLEmbedding.InputDim() != m.WordVectors.Dim() {
		return fmt.Errorf("%w: embedding network expects %d inputs but word vectors have dimension %d",
			apperrors.ErrModelInvalid, m.NLEmbedding.InputDim(), m.WordVectors.Dim())
	}
	if m.NLScaling.InputDim() != m.NLEmbedding.OutputDim() {
		return fmt.Errorf("%w: scaling network expects %d inputs but embedding network produces %d",
			apperrors.ErrModelInvalid, m.NLScaling.InputDim(), m.NLEmbedding.OutputDim())
	}
	return nil
}

// Loader loads model artifacts from the configured paths.
type Loader struct {
	cfg        config.ModelsConfig
	httpClient *http.Client
	retryCfg   *retry.Config
	logger     *zap.Logger
}

// NewLoader creates a loader for the given artifact locations.
func NewLoader(cfg config.ModelsConfig, httpClient *http.Client, logger *zap.Logger) *Loader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Loader{
		cfg:        cfg,
		httpClient: httpClient,
		retryCfg:   retry.DefaultConfig(),
		logger:     logger.Named("model-loader"),
	}
}

// Load reads every artifact once. A missing NER gazetteer is downloaded once
// from the configured URL and then loaded again; any other failure is
// returned as is.
func (l *Loader) Load(ctx context.Context) (*Models, error) {
	start := time.Now()

	wv, err := LoadWordVectors(l.cfg.WordVectorsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load word vectors: %w", err)
	}
	emb, err := LoadNetwork(l.cfg.NLEmbeddingModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding network: %w", err)
	}
	scal, err := LoadNetwork(l.cfg.NLScalingModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load scaling network: %w", err)
	}
	ner, err := l.loadRecognizer(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load NER model: %w", err)
	}

	m := &Models{WordVectors: wv, NLEmbedding: emb, NLScaling: scal, NER: ner}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	l.logger.Info("Loaded models",
		zap.String("word_vectors_version", wv.Version()),
		zap.Int("vocabulary", wv.Len()),
		zap.Int("word_vector_dim", wv.Dim()),
		zap.String("embedding_network_version", emb.Version),
		zap.String("scaling_network_version", scal.Version),
		zap.String("ner_version", ner.Version()),
		zap.Int("ner_entries", ner.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return m, nil
}

func (l *Loader) loadRecognizer(ctx context.Context) (*Recognizer, error) {
	r, err := LoadRecognizer(l.cfg.NERModelPath)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, apperrors.ErrModelNotFound) || l.cfg.NERModelURL == "" {
		return nil, err
	}

	l.logger.Warn("NER model missing locally, downloading",
		zap.String("path", l.cfg.NERModelPath),
		zap.String("url", logging.SanitizeURL(l.cfg.NERModelURL)))

	if err := l.download(ctx, l.cfg.NERModelURL, l.cfg.NERModelPath); err != nil {
		return nil, fmt.Errorf("download failed: %s", logging.SanitizeError(err))
	}
	return LoadRecognizer(l.cfg.NERModelPath)
}

// download fetches url into dest. Transient HTTP failures are retried with
// backoff; the file appears at dest only when complete.
func (l *Loader) download(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}

	attempt := 0
	return retry.DoIfRetryable(ctx, l.retryCfg, func() error {
		attempt++
		err := l.fetch(ctx, url, dest)
		if err != nil {
			l.logger.Warn("Model download attempt failed",
				zap.Int("attempt", attempt),
				zap.String("error", logging.SanitizeError(err)))
		}
		return err
	})
}

func (l *Loader) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &retry.StatusError{URL: logging.SanitizeURL(url), StatusCode: resp.StatusCode}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}
