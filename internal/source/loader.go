package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/kapu/famescale/internal/constants"
	"github.com/kapu/famescale/internal/util"
	"github.com/kapu/famescale/pkg/errors"
	"go.uber.org/zap"
)

const serviceName = "fame_source"

// Loader fetches the raw fame scale text. Each request carries a timestamp
// query parameter so intermediate caches never answer it.
type Loader struct {
	httpClient *http.Client
	sourceURL  *url.URL
	breaker    *util.CircuitBreaker
	logger     *zap.Logger
	now        func() time.Time
	maxBody    int64
}

type Option func(*Loader)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) {
		l.httpClient = client
	}
}

// WithCircuitBreaker makes Load fail fast while the breaker is open.
func WithCircuitBreaker(cb *util.CircuitBreaker) Option {
	return func(l *Loader) {
		l.breaker = cb
	}
}

func NewLoader(rawURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) (*Loader, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.NewValidationError("invalid source url", "url", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.NewValidationError("source url must be http or https", "url", rawURL)
	}
	if timeout <= 0 {
		timeout = constants.SourceConfig.Timeout
	}

	l := &Loader{
		httpClient: &http.Client{Timeout: timeout},
		sourceURL:  u,
		logger:     logger,
		now:        time.Now,
		maxBody:    constants.SourceConfig.MaxBodyBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// URL returns the source URL without the cache-busting parameter.
func (l *Loader) URL() string {
	return l.sourceURL.String()
}

// Load returns the response body as text. Transport failures come back as
// *errors.ServiceError, non-2xx and oversized responses as *errors.APIError.
// A call abandoned through ctx does not count against the circuit breaker.
func (l *Loader) Load(ctx context.Context) (string, error) {
	if l.breaker != nil && !l.breaker.CanExecute() {
		retryAfter := l.breaker.RetryAfter()
		l.logger.Warn("Circuit breaker is open", zap.Duration("retry_after", retryAfter))
		return "", errors.NewAPIError("Circuit breaker open", http.StatusServiceUnavailable, map[string]any{
			"retry_after_ms": retryAfter.Milliseconds(),
		})
	}

	text, err := l.fetch(ctx)
	if l.breaker != nil {
		if err != nil {
			if ctx.Err() == nil {
				l.breaker.RecordFailure()
			}
		} else {
			l.breaker.RecordSuccess()
		}
	}
	return text, err
}

func (l *Loader) fetch(ctx context.Context) (string, error) {
	reqURL := l.requestURL()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", errors.NewServiceError("failed to build request", serviceName, "load", err)
	}
	req.Header.Set("User-Agent", constants.SourceConfig.UserAgent)
	req.Header.Set("Accept", "text/plain, text/html;q=0.8, */*;q=0.5")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		l.logger.Warn("Fame source request failed", zap.String("url", reqURL), zap.Error(err))
		return "", errors.NewServiceError("HTTP request failed", serviceName, "load", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		l.logger.Warn("Fame source returned error status",
			zap.String("url", reqURL),
			zap.Int("status", resp.StatusCode),
		)
		return "", errors.NewAPIError(fmt.Sprintf("HTTP error! status: %d", resp.StatusCode), resp.StatusCode, map[string]any{
			"url": reqURL,
		})
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBody+1))
	if err != nil {
		return "", errors.NewServiceError("failed to read response body", serviceName, "load", err)
	}
	if int64(len(raw)) > l.maxBody {
		l.logger.Warn("Fame source response too large",
			zap.String("url", reqURL),
			zap.Int64("limit_bytes", l.maxBody),
		)
		return "", errors.NewAPIError("response body exceeds size limit", http.StatusBadGateway, map[string]any{
			"url":         reqURL,
			"limit_bytes": l.maxBody,
		})
	}

	if isHTML(resp.Header.Get("Content-Type")) {
		text, err := extractText(bytes.NewReader(raw))
		if err != nil {
			return "", errors.NewServiceError("failed to parse HTML source", serviceName, "load", err)
		}
		l.logger.Debug("Extracted fame text from HTML source", zap.Int("bytes", len(text)))
		return text, nil
	}

	l.logger.Debug("Fame source loaded", zap.String("url", reqURL), zap.Int("bytes", len(raw)))
	return string(raw), nil
}

func (l *Loader) requestURL() string {
	u := *l.sourceURL
	q := u.Query()
	q.Set(constants.SourceConfig.CacheBustParam, strconv.FormatInt(l.now().UnixMilli(), 10))
	u.RawQuery = q.Encode()
	return u.String()
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// extractText pulls the fame file out of an HTML page: the first <pre>
// block, else the body text.
func extractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	if pre := doc.Find("pre").First(); pre.Length() > 0 {
		return pre.Text(), nil
	}
	return strings.TrimSpace(doc.Find("body").Text()), nil
}
