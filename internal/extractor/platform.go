package extractor

import (
	"net"
	"strings"
)

type Platform string

const (
	PlatformReddit    Platform = "reddit"
	PlatformYouTube   Platform = "youtube"
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
)

var platformDomains = []struct {
	domain   string
	platform Platform
}{
	{"reddit.com", PlatformReddit},
	{"youtube.com", PlatformYouTube},
	{"twitter.com", PlatformTwitter},
	{"x.com", PlatformTwitter},
	{"facebook.com", PlatformFacebook},
	{"instagram.com", PlatformInstagram},
}

// DetectPlatform maps a page host to its platform. Subdomains match their
// parent domain.
func DetectPlatform(host string) (Platform, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")

	for _, d := range platformDomains {
		if host == d.domain || strings.HasSuffix(host, "."+d.domain) {
			return d.platform, true
		}
	}
	return "", false
}
