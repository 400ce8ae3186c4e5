package skin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder
	"golang.org/x/sync/singleflight"

	"github.com/calvinalkan/flagskin/internal/fs"
)

// DefaultFetchTimeout bounds a single remote fetch.
const DefaultFetchTimeout = 30 * time.Second

// maxPayload caps remote downloads.
const maxPayload = 32 << 20

var tracer = otel.Tracer("github.com/calvinalkan/flagskin/internal/skin")

// Source is a faction's desired appearance. Priority is URL, then Path,
// then Color.
type Source struct {
	Color color.NRGBA
	Path  string
	URL   string
}

// Image is a decoded image and where it came from.
type Image struct {
	// Name is the base name of the source, used to name the texture.
	Name   string
	Source string
	Format string
	Image  image.Image

	// Cached is true when the bytes came from the disk cache.
	Cached bool
}

// AssetLoader resolves a faction's source into an image.
type AssetLoader interface {
	// Load returns the image for src, or an error wrapping [ErrNoImage]
	// when the caller should fall back to src.Color.
	Load(ctx context.Context, f Faction, src Source) (*Image, error)
}

// LoaderOptions configures a [Loader].
type LoaderOptions struct {
	// FS reads local images. Defaults to [fs.NewReal].
	FS fs.FS

	// Client performs remote fetches. Defaults to a client with
	// [DefaultFetchTimeout].
	Client *http.Client

	// Cache stores remote bytes. nil disables caching.
	Cache *Cache

	Logger *slog.Logger
}

// Loader resolves images from URLs and local paths.
//
// Concurrent loads of the same URL share one request. The shared request
// is detached from any single caller's cancellation; a caller whose context
// ends stops waiting and gets the context error.
type Loader struct {
	fs       fs.FS
	client   *http.Client
	cache    atomic.Pointer[Cache]
	useCache atomic.Bool
	log      *slog.Logger
	flight   singleflight.Group
}

// NewLoader returns a loader. Caching is enabled when opts.Cache is set.
func NewLoader(opts LoaderOptions) *Loader {
	l := &Loader{
		fs:     opts.FS,
		client: opts.Client,
		log:    opts.Logger,
	}

	l.cache.Store(opts.Cache)

	if l.fs == nil {
		l.fs = fs.NewReal()
	}

	if l.client == nil {
		l.client = &http.Client{Timeout: DefaultFetchTimeout}
	}

	if l.log == nil {
		l.log = slog.New(slog.DiscardHandler)
	}

	l.useCache.Store(true)

	return l
}

// SetCacheEnabled turns the disk cache on or off. It has no effect while the
// loader has no cache.
func (l *Loader) SetCacheEnabled(enabled bool) {
	l.useCache.Store(enabled)
}

// SetCache swaps the disk cache used by loads started afterwards. A nil c
// disables caching.
func (l *Loader) SetCache(c *Cache) {
	l.cache.Store(c)
}

// CacheEnabled reports whether remote bytes go through the disk cache.
func (l *Loader) CacheEnabled() bool {
	return l.activeCache() != nil
}

func (l *Loader) activeCache() *Cache {
	if !l.useCache.Load() {
		return nil
	}

	return l.cache.Load()
}

// Load tries src.URL, then src.Path. Each failure is logged and the next
// source is tried. When neither produces an image the error wraps
// [ErrNoImage] and the last source error, if any.
func (l *Loader) Load(ctx context.Context, f Faction, src Source) (*Image, error) {
	ctx, span := tracer.Start(ctx, "skin.Load", trace.WithAttributes(
		attribute.String("faction", f.String()),
		attribute.Bool("has_url", src.URL != ""),
		attribute.Bool("has_path", src.Path != ""),
	))
	defer span.End()

	var lastErr error

	if src.URL != "" {
		img, err := l.loadURL(ctx, src.URL)
		if err == nil {
			return img, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		l.log.Warn("cannot load texture from URL, check the link or your connection",
			"faction", f.String(), "url", src.URL, "error", err)

		lastErr = err
	}

	if src.Path != "" {
		img, err := l.loadPath(ctx, src.Path)
		if err == nil {
			return img, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		l.log.Warn("cannot load local texture, check the path",
			"faction", f.String(), "path", src.Path, "error", err)

		lastErr = err
	}

	if lastErr != nil {
		span.SetStatus(codes.Error, "fell back to color")

		return nil, fmt.Errorf("%w: %w", ErrNoImage, lastErr)
	}

	return nil, ErrNoImage
}

func (l *Loader) loadURL(ctx context.Context, rawURL string) (*Image, error) {
	name := sourceName(rawURL)
	cache := l.activeCache()

	if cache != nil {
		data, hit, err := cache.Get(rawURL)
		if err != nil {
			l.log.Warn("cannot read texture cache", "url", rawURL, "error", err)
		}

		if hit {
			img, format, err := decode(ctx, data)
			if err == nil {
				l.log.Debug("loaded texture from cache", "url", rawURL, "path", cache.Path(rawURL))

				return &Image{Name: name, Source: rawURL, Format: format, Image: img, Cached: true}, nil
			}

			l.log.Warn("cached texture is corrupt, downloading again",
				"url", rawURL, "path", cache.Path(rawURL), "error", err)
		}
	}

	data, err := l.fetchShared(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	img, format, err := decode(ctx, data)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Put(rawURL, data); err != nil {
			l.log.Warn("cannot save texture to cache", "url", rawURL, "error", err)
		} else {
			l.log.Debug("saved texture to cache", "url", rawURL, "path", cache.Path(rawURL))
		}
	}

	return &Image{Name: name, Source: rawURL, Format: format, Image: img}, nil
}

func (l *Loader) fetchShared(ctx context.Context, rawURL string) ([]byte, error) {
	detached := context.WithoutCancel(ctx)

	ch := l.flight.DoChan(rawURL, func() (any, error) {
		return l.fetch(detached, rawURL)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val.([]byte), nil
	}
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "skin.fetch", trace.WithAttributes(attribute.String("url", rawURL)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, traceErr(span, fmt.Errorf("%w: %w", ErrSourceUnreachable, err))
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, traceErr(span, fmt.Errorf("%w: %w", ErrSourceUnreachable, err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, traceErr(span, fmt.Errorf("%w: %s", ErrSourceUnreachable, resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, traceErr(span, fmt.Errorf("%w: read body: %w", ErrSourceUnreachable, err))
	}

	if len(data) == 0 {
		return nil, traceErr(span, ErrEmptyPayload)
	}

	return data, nil
}

// loadPath decodes a local file. Local files are never cached.
func (l *Loader) loadPath(ctx context.Context, p string) (*Image, error) {
	exists, err := l.fs.Exists(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileUnreadable, p, err)
	}

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrFileMissing, p)
	}

	data, err := l.fs.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileUnreadable, p, err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrDecode, p)
	}

	img, format, err := decode(ctx, data)
	if err != nil {
		return nil, err
	}

	return &Image{Name: filepath.Base(p), Source: p, Format: format, Image: img}, nil
}

func decode(ctx context.Context, data []byte) (image.Image, string, error) {
	_, span := tracer.Start(ctx, "skin.decode", trace.WithAttributes(attribute.Int("bytes", len(data))))
	defer span.End()

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", traceErr(span, fmt.Errorf("%w (format might not be supported): %w", ErrDecode, err))
	}

	span.SetAttributes(attribute.String("format", format))

	return img, format, nil
}

// sourceName returns the last path element of a URL, or the URL itself when
// it has no usable path.
func sourceName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return rawURL
	}

	return path.Base(u.Path)
}

func traceErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}

// IsFallback reports whether err only means "use the color".
func IsFallback(err error) bool {
	return errors.Is(err, ErrNoImage)
}
