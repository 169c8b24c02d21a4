package personasdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// The Persona calls below are the only network traffic the client makes.
// Each one honours ctx, the limiter and the client's 30 second timeout, and
// none of them retry.

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("persona rate limit: %w", err)
	}
	return nil
}

// doRequest performs a request against the Persona host.
func (c *Client) doRequest(
	ctx context.Context,
	method, rawURL string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// checkTokenIsValid asks Persona whether token (optionally scoped) is live.
// Only 204 No Content means yes; every other outcome, including transport
// failure, means no.
func (c *Client) checkTokenIsValid(ctx context.Context, token, scope string) bool {
	u := c.baseURL + c.cfg.PersonaOAuthRoute + "/" + url.PathEscape(token)
	if scope != "" {
		u += "?scope=" + url.QueryEscape(scope)
	}

	resp, err := c.doRequest(ctx, http.MethodHead, u, nil, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "persona.introspect.error", "err", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusNoContent
}

// requestToken runs the client_credentials grant.
func (c *Client) requestToken(ctx context.Context, form url.Values) (*Token, []byte, error) {
	resp, err := c.doRequest(ctx, http.MethodPost,
		c.baseURL+c.cfg.PersonaOAuthRoute,
		strings.NewReader(form.Encode()),
		map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
			"Accept":       "application/json",
		},
	)
	if err != nil {
		return nil, nil, &RemoteError{Op: "obtain token", Err: fmt.Errorf("%w: %w", ErrTokenRequestFailed, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, newRemoteError("obtain token", resp, body, ErrTokenRequestFailed)
	}

	var tok Token
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &tok, body, nil
}

// getUsers fetches /users with the given query using token as the bearer.
// A 404 is reported as notFound; any other non-200 is a RemoteError.
func (c *Client) getUsers(ctx context.Context, query url.Values, token string, notFound error) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet,
		c.baseURL+"/users?"+query.Encode(),
		nil,
		map[string]string{
			"Authorization": "Bearer " + token,
			"Accept":        "application/json",
		},
	)
	if err != nil {
		return nil, &RemoteError{Op: "get users", Err: fmt.Errorf("%w: %w", ErrTokenRequestFailed, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, notFound
	default:
		return nil, newRemoteError("get users", resp, body, ErrTokenRequestFailed)
	}
}
