// Package exposure queries a remote breach database for known-compromised
// secrets using the k-anonymity range protocol: only the first five hex
// characters of the secret's SHA-1 digest ever leave the process.
package exposure

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single range request when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Checker performs breach lookups against a range endpoint such as
// https://api.pwnedpasswords.com.
type Checker struct {
	client  *http.Client
	baseURL string
	log     *zap.Logger
}

// New constructs a Checker for the given base URL. timeout bounds the whole
// request; values <= 0 fall back to DefaultTimeout.
func New(baseURL string, timeout time.Duration, log *zap.Logger) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// Check reports whether secret appears in the breach database. It is
// best-effort and fails open: any transport error, non-success status, or
// timeout yields false, never an error. An unreachable breach service must
// not block secret generation. ctx cancels an in-flight request.
func (c *Checker) Check(ctx context.Context, secret string) bool {
	sum := sha1.Sum([]byte(secret))
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := digest[:5], digest[5:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/range/"+prefix, nil)
	if err != nil {
		c.log.Warn("exposure check skipped", zap.Error(err))
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("exposure check failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("exposure check failed", zap.Int("status", resp.StatusCode))
		return false
	}

	// Body is newline-delimited "SUFFIX:count" records sharing the prefix.
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		recordSuffix, _, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if recordSuffix == suffix {
			return true
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Warn("exposure check failed", zap.Error(err))
	}
	return false
}
