package proxy

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// CheckUpstream makes one authenticated request to the upstream API and
// reports whether the token is accepted.
func (p *Proxy) CheckUpstream(ctx context.Context) error {
	client := resty.New().
		SetTimeout(p.cfg.Timeout).
		SetRetryCount(0).
		SetAuthToken(p.cfg.Token)
	defer client.Close()

	testURL := strings.TrimRight(p.upstream.String(), "/")
	if prefix := strings.Trim(p.cfg.PathPrefix, "/"); prefix != "" {
		testURL += "/" + prefix
	}
	testURL += "/entity/productfolder"

	resp, err := client.R().
		SetContext(ctx).
		SetQueryParam("limit", "1").
		Get(testURL)
	if err != nil {
		return fmt.Errorf("upstream check failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("upstream check failed with status: %s", resp.Status())
	}

	log.Infof("✅ Upstream %s accepted the token", p.upstream.Host)
	return nil
}
