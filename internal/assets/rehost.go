package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"luxegen-backend/internal/models"
	"luxegen-backend/internal/observability"
)

// ObjectStore uploads bytes under a key and returns a publicly dereferenceable URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

const nameAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

type RehosterOptions struct {
	Store  ObjectStore
	Logger *slog.Logger
	Now    func() time.Time
	Rand   func(n int) int
}

type Rehoster struct {
	store  ObjectStore
	logger *slog.Logger
	now    func() time.Time
	rand   func(n int) int
}

func NewRehoster(opts RehosterOptions) *Rehoster {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.IntN
	}
	return &Rehoster{
		store:  opts.Store,
		logger: logger,
		now:    now,
		rand:   rnd,
	}
}

// Rehost uploads the image carried by dataURI under ownerID's key prefix and returns its public URL.
// Every failure wraps models.ErrAssetUploadFailed.
func (r *Rehoster) Rehost(ctx context.Context, ownerID, dataURI, prefix string) (string, error) {
	data, contentType, err := DecodeDataURI(dataURI)
	if err != nil {
		observability.AssetUploads.WithLabelValues("invalid").Inc()
		return "", fmt.Errorf("%w: %v", models.ErrAssetUploadFailed, err)
	}

	name := r.ObjectName(ownerID, prefix, contentType)
	start := time.Now()
	url, err := r.store.Put(ctx, name, data, contentType)
	if err != nil {
		observability.AssetUploads.WithLabelValues("error").Inc()
		r.logger.Warn("asset upload failed", "name", name, "size", len(data), "err", err)
		return "", fmt.Errorf("%w: %v", models.ErrAssetUploadFailed, err)
	}
	if url == "" {
		observability.AssetUploads.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: store returned no public url for %s", models.ErrAssetUploadFailed, name)
	}

	observability.AssetUploads.WithLabelValues("ok").Inc()
	r.logger.Info("asset uploaded", "name", name, "size", len(data), "duration", time.Since(start).String())
	return url, nil
}

// ObjectName derives users/<owner>/<prefix>_<unix millis>_<6 random base36 chars><ext>.
func (r *Rehoster) ObjectName(ownerID, prefix, contentType string) string {
	prefix = keySegment(strings.Trim(strings.TrimSpace(prefix), "_/"))
	if prefix == "" {
		prefix = "asset"
	}

	var suffix strings.Builder
	for i := 0; i < 6; i++ {
		suffix.WriteByte(nameAlphabet[r.rand(len(nameAlphabet))])
	}

	return OwnerKeyPrefix(ownerID) + prefix + "_" + strconv.FormatInt(r.now().UnixMilli(), 10) + "_" + suffix.String() + ExtensionFor(contentType)
}

// OwnerKeyPrefix is the key directory holding every object re-hosted for ownerID.
func OwnerKeyPrefix(ownerID string) string {
	segment := keySegment(strings.TrimSpace(ownerID))
	if segment == "" {
		segment = "_"
	}
	return "users/" + segment + "/"
}

// OwnsKey reports whether key was issued under ownerID's prefix.
func OwnsKey(ownerID, key string) bool {
	if strings.TrimSpace(ownerID) == "" || strings.Contains(key, "..") {
		return false
	}
	return strings.HasPrefix(key, OwnerKeyPrefix(ownerID))
}

// keySegment keeps [A-Za-z0-9_-] and replaces everything else with '_'.
func keySegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
