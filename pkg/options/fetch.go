package options

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/goliatone/go-formwizard/pkg/metadata"
)

func (l *Loader) fetchOptions(ctx context.Context, target string, remote *metadata.RemoteOptions) ([]metadata.Option, error) {
	raw, err := l.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	return l.decode(raw, remote)
}

func (l *Loader) fetch(ctx context.Context, target string) ([]byte, error) {
	if l.client == nil {
		return nil, errors.New("options: http client is not configured")
	}
	if target == "" {
		return nil, errors.New("options: url is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if l.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("options: unexpected status " + resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return data, nil
}
