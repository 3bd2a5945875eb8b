// Package proxy is the credential-injecting gateway in front of the inventory
// API. It holds the bearer token so that neither browsers nor the catalog
// service ever see it.
package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"storefront/catalog/internal/config"
	"storefront/catalog/internal/handler"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// Upstream CORS headers are dropped so the browser only sees ours.
var upstreamCORSHeaders = []string{
	"Access-Control-Allow-Origin",
	"Access-Control-Allow-Credentials",
	"Access-Control-Allow-Methods",
	"Access-Control-Allow-Headers",
	"Access-Control-Expose-Headers",
}

type Proxy struct {
	cfg      config.ProxyConfig
	upstream *url.URL
	reverse  *httputil.ReverseProxy
}

func New(cfg config.ProxyConfig) (*Proxy, error) {
	if cfg.Token == "" {
		return nil, errors.New("proxy.token is required")
	}
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil || upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("invalid proxy.upstream %q", cfg.Upstream)
	}

	p := &Proxy{cfg: cfg, upstream: upstream}
	p.reverse = &httputil.ReverseProxy{
		Rewrite:        p.rewrite,
		Transport:      newTransport(cfg.Timeout),
		ModifyResponse: stripUpstreamCORS,
		ErrorHandler:   upstreamError,
	}
	return p, nil
}

// newTransport bounds the wait for upstream response headers. Bodies are
// streamed, so there is no limit on the whole exchange.
func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		t.ResponseHeaderTimeout = timeout
	}
	return t
}

func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(p.upstream)
	pr.SetXForwarded()

	pr.Out.Host = p.upstream.Host
	pr.Out.Header.Del("Cookie")
	pr.Out.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	pr.Out.Header.Set("Accept-Encoding", "gzip")
}

// Router serves /health and forwards everything under the path prefix.
func (p *Proxy) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(handler.Recoverer)
	r.Use(handler.Logger)
	r.Use(cors(p.cfg.AllowOrigins))

	r.Get("/health", handler.Health)

	prefix := "/" + strings.Trim(p.cfg.PathPrefix, "/")
	if prefix == "/" {
		r.Handle("/*", p.reverse)
	} else {
		r.Handle(prefix+"/*", p.reverse)
	}
	return r
}

func stripUpstreamCORS(resp *http.Response) error {
	for _, h := range upstreamCORSHeaders {
		resp.Header.Del(h)
	}
	return nil
}

func upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	log.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Errorf("❌ Upstream request failed: %v", err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "upstream unavailable"})
}
