package enrich

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/net/html/charset"
)

const (
	defaultSiteTimeout = 10 * time.Second
	maxSiteBytes       = 2 << 20
	siteUserAgent      = "prospect-cli/1.0 (+listing enrichment)"
)

// ErrPrivateAddress is returned when a website resolves to a loopback,
// private, link-local or otherwise non-public address.
var ErrPrivateAddress = eris.New("enrich: website resolves to a non-public address")

// SocialLinks are the brand profiles linked from a business homepage.
type SocialLinks struct {
	FacebookURL  string
	InstagramURL string
}

// SiteScanner fetches a listing's own website and looks for links to its
// social profiles.
type SiteScanner struct {
	http *http.Client
}

// NewSiteScanner creates a SiteScanner. A nil client gets PublicClient with
// a 10s timeout.
func NewSiteScanner(hc *http.Client) *SiteScanner {
	if hc == nil {
		hc = PublicClient(defaultSiteTimeout)
	}
	return &SiteScanner{http: hc}
}

// PublicClient returns an HTTP client that refuses to connect to non-public
// addresses. Website URLs come from the search provider, so every dial,
// redirects included, is checked after DNS resolution.
func PublicClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout: timeout,
		Control: func(_, address string, _ syscall.RawConn) error {
			return checkPublicAddress(address)
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	return &http.Client{Timeout: timeout, Transport: transport}
}

func checkPublicAddress(address string) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return eris.Wrapf(ErrPrivateAddress, "unparsable address %q", address)
	}
	if !isPublicAddr(ap.Addr()) {
		return eris.Wrapf(ErrPrivateAddress, "address %s", ap.Addr())
	}
	return nil
}

func isPublicAddr(a netip.Addr) bool {
	a = a.Unmap()
	return a.IsValid() &&
		!a.IsLoopback() &&
		!a.IsPrivate() &&
		!a.IsLinkLocalUnicast() &&
		!a.IsLinkLocalMulticast() &&
		!a.IsInterfaceLocalMulticast() &&
		!a.IsMulticast() &&
		!a.IsUnspecified() &&
		!sharedAddressSpace.Contains(a)
}

// 100.64.0.0/10, carrier-grade NAT.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Scan downloads the homepage at rawURL and returns the first Facebook and
// Instagram links found in its anchors.
func (s *SiteScanner) Scan(ctx context.Context, rawURL string) (SocialLinks, error) {
	target, err := normalizeSiteURL(rawURL)
	if err != nil {
		return SocialLinks{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return SocialLinks{}, eris.Wrap(err, "enrich: build site request")
	}
	req.Header.Set("User-Agent", siteUserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.http.Do(req)
	if err != nil {
		return SocialLinks{}, eris.Wrap(err, "enrich: fetch site")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return SocialLinks{}, eris.Errorf("enrich: site returned status %d", resp.StatusCode)
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, maxSiteBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return SocialLinks{}, eris.Wrap(err, "enrich: decode site")
	}
	return ExtractSocialLinks(body, resp.Request.URL)
}

// ExtractSocialLinks parses an HTML document and returns its first Facebook
// and Instagram profile links. Relative hrefs resolve against base.
func ExtractSocialLinks(r io.Reader, base *url.URL) (SocialLinks, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return SocialLinks{}, eris.Wrap(err, "enrich: parse site")
	}

	var links SocialLinks
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		u, err := url.Parse(href)
		if err != nil {
			return true
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		link := u.String()

		switch {
		case links.FacebookURL == "" && hostIs(link, "facebook.com") && isProfilePath(u.Path):
			links.FacebookURL = link
		case links.InstagramURL == "" && hostIs(link, "instagram.com") && isProfilePath(u.Path):
			links.InstagramURL = link
		}
		return links.FacebookURL == "" || links.InstagramURL == ""
	})
	return links, nil
}

// isProfilePath rejects share widgets and bare domains.
func isProfilePath(p string) bool {
	p = strings.Trim(p, "/")
	if p == "" {
		return false
	}
	first := strings.ToLower(strings.SplitN(p, "/", 2)[0])
	switch first {
	case "sharer", "sharer.php", "share", "share.php", "dialog", "plugins", "intent":
		return false
	}
	return true
}

func normalizeSiteURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.New("enrich: empty website")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", eris.Errorf("enrich: invalid website %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", eris.Errorf("enrich: unsupported website scheme %q", u.Scheme)
	}
	return u.String(), nil
}
