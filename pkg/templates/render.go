// pkg/templates/render.go
//
// Template rendering with size limits, a render timeout and a rate limiter.
// Every generated configuration file in hermes goes through a Renderer.

package templates

import (
	"bytes"
	"context"
	"io/fs"
	"text/template"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultMaxTemplateSize caps template source size.
	DefaultMaxTemplateSize = 1 * 1024 * 1024
	// DefaultMaxOutputSize caps rendered output.
	DefaultMaxOutputSize = 4 * 1024 * 1024
	// DefaultTemplateTimeout bounds a single Execute.
	DefaultTemplateTimeout = 10 * time.Second
	// RateLimitBurst and RateLimitPerSecond bound render calls per renderer.
	RateLimitBurst     = 20
	RateLimitPerSecond = 10
)

// RenderOptions tunes a single render.
type RenderOptions struct {
	MaxSize       int64
	MaxOutputSize int
	Timeout       time.Duration
	// Funcs are added to the template before parsing.
	Funcs template.FuncMap
	// Strict makes missing map keys an error.
	Strict bool
}

// DefaultRenderOptions returns the limits used when none are given.
func DefaultRenderOptions() *RenderOptions {
	return &RenderOptions{
		MaxSize:       DefaultMaxTemplateSize,
		MaxOutputSize: DefaultMaxOutputSize,
		Timeout:       DefaultTemplateTimeout,
		Strict:        true,
	}
}

// Renderer renders text templates.
type Renderer struct {
	limiter *rate.Limiter
}

// NewRenderer creates a renderer with its own rate limiter.
func NewRenderer() *Renderer {
	return &Renderer{
		limiter: rate.NewLimiter(rate.Limit(RateLimitPerSecond), RateLimitBurst),
	}
}

// RenderString renders tmplStr with data.
func (r *Renderer) RenderString(ctx context.Context, name, tmplStr string, data any, opts *RenderOptions) (string, error) {
	logger := otelzap.Ctx(ctx)
	if opts == nil {
		opts = DefaultRenderOptions()
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return "", cerr.Wrapf(err, "rate limit waiting to render %s", name)
	}

	if int64(len(tmplStr)) > opts.MaxSize {
		logger.Error("Template size exceeds limit",
			zap.String("template", name),
			zap.Int("size", len(tmplStr)),
			zap.Int64("max_size", opts.MaxSize))
		return "", cerr.Newf("template %s size %d exceeds limit %d", name, len(tmplStr), opts.MaxSize)
	}

	tmpl := template.New(name)
	if opts.Funcs != nil {
		tmpl = tmpl.Funcs(opts.Funcs)
	}
	if opts.Strict {
		tmpl = tmpl.Option("missingkey=error")
	}
	tmpl, err := tmpl.Parse(tmplStr)
	if err != nil {
		return "", cerr.Wrapf(err, "parse template %s", name)
	}

	renderCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		var buf bytes.Buffer
		w := &limitedWriter{buf: &buf, max: opts.MaxOutputSize}
		err := tmpl.Execute(w, data)
		done <- result{out: buf.String(), err: err}
	}()

	select {
	case <-renderCtx.Done():
		logger.Error("Template rendering timed out",
			zap.String("template", name),
			zap.Duration("timeout", opts.Timeout))
		return "", cerr.Wrapf(renderCtx.Err(), "render %s", name)
	case res := <-done:
		if res.err != nil {
			return "", cerr.Wrapf(res.err, "execute template %s", name)
		}
		logger.Debug("Template rendered",
			zap.String("template", name),
			zap.Int("output_size", len(res.out)))
		return res.out, nil
	}
}

// RenderFS renders the template at path inside fsys, typically an embed.FS.
func (r *Renderer) RenderFS(ctx context.Context, fsys fs.FS, path string, data any, opts *RenderOptions) (string, error) {
	tmplBytes, err := fs.ReadFile(fsys, path)
	if err != nil {
		return "", cerr.Wrapf(err, "read embedded template %s", path)
	}
	return r.RenderString(ctx, path, string(tmplBytes), data, opts)
}

// ErrOutputTooLarge is returned when rendered output exceeds MaxOutputSize.
var ErrOutputTooLarge = cerr.New("rendered output exceeds size limit")

type limitedWriter struct {
	buf *bytes.Buffer
	max int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.max > 0 && w.buf.Len()+len(p) > w.max {
		return 0, ErrOutputTooLarge
	}
	return w.buf.Write(p)
}
