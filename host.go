package kagari

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
)

// ToPuny canonicalizes a host for comparison and storage.
func ToPuny(host string) string {
	ascii, err := idna.Lookup.ToASCII(strings.ToLower(host))
	if err != nil {
		return strings.ToLower(host)
	}
	return ascii
}

// ExtractPunyHost returns the canonical host of a URI.
func ExtractPunyHost(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.Wrapf(err, "invalid uri %q", uri)
	}
	if u.Hostname() == "" {
		return "", errors.Errorf("uri %q has no host", uri)
	}
	return ToPuny(u.Hostname()), nil
}

// FullHandle builds the canonical user@host form. Local actors (empty host)
// get the server's own host.
func FullHandle(username, host, localHost string) string {
	if host == "" {
		host = localHost
	}
	return username + "@" + ToPuny(host)
}

// StripFragment removes the fragment part of a URI; key ids reference actors
// as https://host/users/name#main-key.
func StripFragment(uri string) string {
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		return uri[:i]
	}
	return uri
}
