package lib

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var ErrUnsupportedScheme = errors.New("unsupported url scheme")

// NormalizeURL reduces a URL to the form used as a customer identity:
// lowercase scheme, host and path, no default port, no trailing slash,
// no query and no fragment. Only http and https are accepted.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", errors.Wrapf(err, "parsing %q", raw)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", errors.Wrapf(ErrUnsupportedScheme, "%q", raw)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", errors.Errorf("missing host in %q", raw)
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	path := strings.ToLower(strings.TrimRight(u.EscapedPath(), "/"))
	return scheme + "://" + host + path, nil
}
