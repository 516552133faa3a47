package ws

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/vedran77/marketchat/internal/domain"
)

const NotificationsPath = "/ws/notifications/"

// ChatPath is the socket path of the conversation with partner, optionally
// scoped to a product.
func ChatPath(partner, product domain.ID) string {
	path := "/ws/chat/" + url.PathEscape(partner.String()) + "/"
	if !product.IsZero() {
		path += url.PathEscape(product.String()) + "/"
	}
	return path
}

// BuildURL derives the socket URL from the REST base URL: the scheme becomes
// ws or wss, the host is kept and the base path is dropped. A non-empty
// token is attached as the token query parameter.
func BuildURL(apiBase, path, token string) (string, error) {
	base, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("parsing api base url: %w", err)
	}
	if base.Host == "" {
		return "", fmt.Errorf("api base url %q has no host", apiBase)
	}

	u := url.URL{Scheme: "ws", Host: base.Host, Path: path}
	switch strings.ToLower(base.Scheme) {
	case "https", "wss":
		u.Scheme = "wss"
	}
	if token != "" {
		u.RawQuery = url.Values{"token": {token}}.Encode()
	}
	return u.String(), nil
}
