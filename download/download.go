package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/xeptore/flaw/v8"

	"github.com/xeptore/ikala/config"
	"github.com/xeptore/ikala/errutil"
	"github.com/xeptore/ikala/httputil"
	"github.com/xeptore/ikala/must"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: config.IDMappingRequestTimeout}, //nolint:exhaustruct
	}
}

func newBackoff(timeout time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.Multiplier = 1.1
	b.MaxElapsedTime = timeout
	b.MaxInterval = config.IDMappingRetryMaxInterval
	return b
}

// FetchIDMapping downloads the singer ID mapping file to destPath. Transient
// server failures are retried with exponential backoff, and the file is
// written through a temp file so a torn download never lands at destPath.
func (c *Client) FetchIDMapping(ctx context.Context, mappingURL, destPath string) error {
	op := func() error {
		content, err := c.fetch(ctx, mappingURL)
		if nil != err {
			switch {
			case errutil.IsContext(ctx):
				return backoff.Permanent(ctx.Err())
			case errors.Is(err, ErrUnexpectedStatus):
				return err
			default:
				return backoff.Permanent(err)
			}
		}
		return writeFile(destPath, content)
	}
	return backoff.Retry(op, backoff.WithContext(newBackoff(config.IDMappingRetryMaxElapsed), ctx))
}

func (c *Client) fetch(ctx context.Context, mappingURL string) (content []byte, err error) {
	flawP := flaw.P{"url": mappingURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mappingURL, nil)
	if nil != err {
		if errutil.IsContext(ctx) {
			return nil, ctx.Err()
		}

		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return nil, flaw.From(fmt.Errorf("failed to create get ID mapping request: %v", err)).Append(flawP)
	}

	resp, err := c.httpClient.Do(req)
	if nil != err {
		switch {
		case errutil.IsContext(ctx):
			return nil, ctx.Err()
		case errors.Is(err, context.DeadlineExceeded):
			return nil, context.DeadlineExceeded
		default:
			flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
			return nil, flaw.From(fmt.Errorf("failed to send get ID mapping request: %v", err)).Append(flawP)
		}
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			flawP["err_debug_tree"] = errutil.Tree(closeErr).FlawP()
			closeErr = flaw.From(fmt.Errorf("failed to close get ID mapping response body: %v", closeErr)).Append(flawP)
			switch {
			case nil == err:
				err = closeErr
			case errutil.IsContext(ctx):
				err = flaw.From(errors.New("context was ended")).Join(closeErr)
			case errors.Is(err, context.DeadlineExceeded):
				err = flaw.From(errors.New("timeout has reached")).Join(closeErr)
			case errors.Is(err, ErrUnexpectedStatus):
				err = flaw.From(errors.New("unexpected response status")).Join(closeErr)
			case errutil.IsFlaw(err):
				err = must.BeFlaw(err).Join(closeErr)
			default:
				panic(errutil.UnknownError(err))
			}
		}
	}()
	flawP["response"] = errutil.HTTPResponseFlawPayload(resp)

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
	case code >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	default:
		return nil, flaw.From(fmt.Errorf("get ID mapping request failed with status %s", resp.Status)).Append(flawP)
	}

	respBody, err := httputil.ReadResponseBody(ctx, resp)
	if nil != err {
		return nil, err
	}
	return respBody, nil
}

func writeFile(destPath string, content []byte) error {
	flawP := flaw.P{"dest_path": destPath}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return backoff.Permanent(flaw.From(fmt.Errorf("failed to create ID mapping parent directory: %v", err)).Append(flawP))
	}

	tmpPath := destPath + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o644); nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return backoff.Permanent(flaw.From(fmt.Errorf("failed to write ID mapping temp file: %v", err)).Append(flawP))
	}
	if err := os.Rename(tmpPath, destPath); nil != err {
		flawP["err_debug_tree"] = errutil.Tree(err).FlawP()
		return backoff.Permanent(flaw.From(fmt.Errorf("failed to move ID mapping file into place: %v", err)).Append(flawP))
	}
	return nil
}
