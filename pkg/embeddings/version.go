package embeddings

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// digestReader hashes everything read through it so artifacts can be
// identified in logs without a second pass over the file.
type digestReader struct {
	r io.Reader
	h hash.Hash
}

func newDigestReader(r io.Reader) *digestReader {
	h := sha256.New()
	return &digestReader{r: io.TeeReader(r, h), h: h}
}

func (d *digestReader) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

// version returns the first 12 hex characters of the content digest.
func (d *digestReader) version() string {
	return hex.EncodeToString(d.h.Sum(nil))[:12]
}
