// Package giftimage picks an illustration for a gift idea. Resolution walks
// a fixed chain: the idea's own URL, the cache, the image library by exact
// label, the library by scored attribute match, AI generation, and finally a
// category placeholder.
package giftimage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pliiiz/pliiiz/internal/aigateway"
	"github.com/pliiiz/pliiiz/internal/cache"
	"github.com/pliiiz/pliiiz/internal/domain"
	"github.com/pliiiz/pliiiz/internal/metrics"
	"github.com/pliiiz/pliiiz/internal/quota"
	"github.com/pliiiz/pliiiz/internal/script"
	"github.com/pliiiz/pliiiz/internal/storage"
	"github.com/pliiiz/pliiiz/internal/textnorm"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const (
	cachePrefix      = "giftimage:"
	defaultCacheTTL  = 7 * 24 * time.Hour
	candidateLimit   = 200
	DefaultThreshold = 0.75
)

// Idea is the input of a resolution.
type Idea struct {
	Label       string            `json:"label" validate:"required,min=1,max=160"`
	Category    string            `json:"category" validate:"max=60"`
	Attributes  map[string]string `json:"attributes,omitempty" validate:"max=12"`
	ExistingURL string            `json:"existing_url,omitempty"`
}

// Hash returns the idea hash.
func (i Idea) Hash() string {
	return Hash(i.Label, i.Category, i.Attributes)
}

// Resolution is the chosen image.
type Resolution struct {
	URL    string             `json:"url"`
	Source domain.ImageSource `json:"source"`
	Hash   string             `json:"hash"`
	Score  float64            `json:"score,omitempty"`
}

// Deps are the collaborators of a Resolver.
type Deps struct {
	Library   domain.ImageLibrary
	Cache     cache.Cache
	Scorer    *script.Scorer
	Generator aigateway.Generator
	Bucket    *storage.Bucket
	Catalog   *Catalog
	Quota     *quota.Limiter
	Threshold float64
	CacheTTL  time.Duration
}

// Resolver runs the resolution chain.
type Resolver struct {
	library   domain.ImageLibrary
	cache     cache.Cache
	scorer    *script.Scorer
	generator aigateway.Generator
	bucket    *storage.Bucket
	catalog   *Catalog
	quota     *quota.Limiter
	threshold float64
	cacheTTL  time.Duration
}

// NewResolver creates a Resolver.
func NewResolver(d Deps) *Resolver {
	r := &Resolver{
		library:   d.Library,
		cache:     d.Cache,
		scorer:    d.Scorer,
		generator: d.Generator,
		bucket:    d.Bucket,
		catalog:   d.Catalog,
		quota:     d.Quota,
		threshold: d.Threshold,
		cacheTTL:  d.CacheTTL,
	}
	if r.threshold <= 0 {
		r.threshold = DefaultThreshold
	}
	if r.cacheTTL <= 0 {
		r.cacheTTL = defaultCacheTTL
	}
	if r.cache == nil {
		r.cache = cache.NewMemory()
	}
	return r
}

// Threshold returns the configured match threshold.
func (r *Resolver) Threshold() float64 { return r.threshold }

// Resolve always returns an image. Provider failures are logged and the
// chain moves on to the next step.
func (r *Resolver) Resolve(ctx context.Context, user *surrealmodels.RecordID, idea Idea) *Resolution {
	res := r.resolve(ctx, user, idea)
	metrics.ImageResolutions.WithLabelValues(string(res.Source)).Inc()
	return res
}

func (r *Resolver) resolve(ctx context.Context, user *surrealmodels.RecordID, idea Idea) *Resolution {
	hash := idea.Hash()
	log := slog.With("event", "giftimage.resolve", "hash", hash)

	if IsUsableURL(idea.ExistingURL) {
		return &Resolution{URL: idea.ExistingURL, Source: domain.ImageSourceExisting, Hash: hash}
	}

	var cached Resolution
	if ok, err := cache.GetJSON(ctx, r.cache, cachePrefix+hash, &cached); err != nil {
		log.WarnContext(ctx, "Image cache read failed", "error", err)
	} else if ok {
		return &cached
	}

	if res, ok := r.exactMatch(ctx, idea, hash); ok {
		r.remember(ctx, res)
		return res
	}

	if res, ok := r.MatchLibrary(ctx, idea, r.threshold); ok {
		r.remember(ctx, res)
		return res
	}

	if r.allowAI(user) {
		res, err := r.Generate(ctx, idea)
		if err == nil {
			r.remember(ctx, res)
			return res
		}
		metrics.ProviderErrors.WithLabelValues("ai_gateway").Inc()
		log.WarnContext(ctx, "AI image generation failed", "error", err)
	} else {
		log.InfoContext(ctx, "AI quota exhausted, using placeholder", "user", user.String())
	}

	return r.Placeholder(idea)
}

func (r *Resolver) exactMatch(ctx context.Context, idea Idea, hash string) (*Resolution, bool) {
	normalized := textnorm.Normalize(idea.Label)
	if normalized == "" {
		return nil, false
	}
	img, err := r.library.FindByNormalizedLabel(ctx, normalized)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.WarnContext(ctx, "Image library lookup failed", "event", "giftimage.resolve", "error", err)
		}
		return nil, false
	}
	return &Resolution{URL: img.URL, Source: domain.ImageSourceLibraryExact, Hash: hash}, true
}

// MatchLibrary scores library entries of the idea's category and returns
// the best one at or above threshold. Ideas without attributes never match.
func (r *Resolver) MatchLibrary(ctx context.Context, idea Idea, threshold float64) (*Resolution, bool) {
	if len(idea.Attributes) == 0 || r.scorer == nil {
		return nil, false
	}
	candidates, err := r.library.ListByCategory(ctx, idea.Category, candidateLimit)
	if err != nil {
		slog.WarnContext(ctx, "Image library listing failed", "event", "giftimage.match", "error", err)
		return nil, false
	}

	in := script.MatchInput{Label: textnorm.Normalize(idea.Label), Category: idea.Category, Attributes: idea.Attributes}
	var best *domain.LibraryImage
	bestScore := -1.0
	for _, c := range candidates {
		score, err := r.scorer.Score(ctx, in, script.MatchInput{
			Label:      c.NormalizedLabel,
			Category:   c.Category,
			Attributes: c.Attributes,
		})
		if err != nil {
			slog.WarnContext(ctx, "Scoring script failed", "event", "giftimage.match", "error", err)
			return nil, false
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == nil || bestScore < threshold {
		return nil, false
	}
	return &Resolution{
		URL:    best.URL,
		Source: domain.ImageSourceLibraryMatch,
		Hash:   idea.Hash(),
		Score:  bestScore,
	}, true
}

// Generate asks the AI gateway for an image, stores it in the bucket and
// adds it to the library. It does not consume quota.
func (r *Resolver) Generate(ctx context.Context, idea Idea) (*Resolution, error) {
	hash := idea.Hash()
	img, err := r.generator.GenerateImage(ctx, r.Prompt(idea))
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("ai_gateway").Inc()
		return nil, err
	}

	ext, ok := storage.ImageTypes[img.MIMEType]
	if !ok {
		ext = ".png"
	}
	path := "gifts/ai/" + hash + ext
	if _, err := r.bucket.PutBytes(ctx, storage.Object{
		Kind:     domain.FileKindGiftImage,
		Path:     path,
		Filename: hash + ext,
		MIMEType: img.MIMEType,
	}, img.Data); err != nil {
		return nil, fmt.Errorf("store generated image: %w", err)
	}

	entry := &domain.LibraryImage{
		Hash:            hash,
		Label:           idea.Label,
		NormalizedLabel: textnorm.Normalize(idea.Label),
		Category:        idea.Category,
		Attributes:      idea.Attributes,
		URL:             storage.URL(path),
		Source:          domain.ImageSourceAI,
	}
	if _, err := r.library.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("upsert library image: %w", err)
	}
	return &Resolution{URL: entry.URL, Source: domain.ImageSourceAI, Hash: hash}, nil
}

// Placeholder returns the category's static image.
func (r *Resolver) Placeholder(idea Idea) *Resolution {
	return &Resolution{
		URL:    r.catalog.Lookup(idea.Category).Placeholder,
		Source: domain.ImageSourcePlaceholder,
		Hash:   idea.Hash(),
	}
}

// Prompt builds the generation prompt for an idea.
func (r *Resolver) Prompt(idea Idea) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Square product illustration of %s", strings.TrimSpace(idea.Label))
	if hint := r.catalog.Lookup(idea.Category).PromptHint; hint != "" {
		fmt.Fprintf(&b, ", %s", hint)
	}
	if len(idea.Attributes) > 0 {
		keys := make([]string, 0, len(idea.Attributes))
		for k := range idea.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		details := make([]string, 0, len(keys))
		for _, k := range keys {
			details = append(details, k+": "+idea.Attributes[k])
		}
		fmt.Fprintf(&b, ". Details: %s", strings.Join(details, ", "))
	}
	b.WriteString(". No text, no watermark, plain background.")
	return b.String()
}

// Forget drops the cached resolution for a hash.
func (r *Resolver) Forget(ctx context.Context, hash string) {
	if err := r.cache.Delete(ctx, cachePrefix+hash); err != nil {
		slog.WarnContext(ctx, "Image cache delete failed", "hash", hash, "error", err)
	}
}

func (r *Resolver) remember(ctx context.Context, res *Resolution) {
	if err := cache.SetJSON(ctx, r.cache, cachePrefix+res.Hash, res, r.cacheTTL); err != nil {
		slog.WarnContext(ctx, "Image cache write failed", "hash", res.Hash, "error", err)
	}
}

// IsUsableURL accepts absolute http(s) URLs and bucket media paths.
func IsUsableURL(raw string) bool {
	if raw == "" {
		return false
	}
	if strings.HasPrefix(raw, storage.MediaPrefix) {
		_, ok := storage.PathFromURL(raw)
		return ok
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// allowAI spends one unit of user's generation quota. Anonymous calls are
// not metered.
func (r *Resolver) allowAI(user *surrealmodels.RecordID) bool {
	return r.quota == nil || user == nil || r.quota.Allow(user.String())
}
