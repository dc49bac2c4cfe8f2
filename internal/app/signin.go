package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nfrund/homeplace/internal/protocol"
	"github.com/samber/do/v2"
)

// SessionURL derives the gateway's sign-in endpoint from its socket URL.
func SessionURL(gatewayURL string) (string, error) {
	u, err := url.Parse(gatewayURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported gateway scheme %q", u.Scheme)
	}
	u.Path = "/api/session"
	u.RawQuery = ""
	return u.String(), nil
}

// SignIn opens a member session on the gateway. The cookie lands in the
// shared client's jar and rides along on the socket handshake.
func (a *App) SignIn(ctx context.Context, m protocol.MemberData) error {
	client := do.MustInvoke[*http.Client](a.injector)
	endpoint, err := SessionURL(a.cfg.GetGatewayURL())
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{
		"memberId":    m.ID,
		"memberNick":  m.Nick,
		"memberImage": m.Image,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("sign in: gateway answered %s", resp.Status)
	}
	return nil
}
