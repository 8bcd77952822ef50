// Package embed turns whatever an admin pasted into an episode's video field
// (a share link, a watch page, a full <iframe> snippet) into a URL the player
// can load, and decides whether it goes in an <iframe> or a <video> tag.
//
// Everything here is pure string work: no I/O, no state.
package embed

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"
)

// Kind is the HTML element the player should use.
type Kind string

const (
	KindIframe Kind = "iframe"
	KindVideo  Kind = "video"
	KindNone   Kind = "none"
)

// Provider names a known video host.
type Provider string

const (
	ProviderDailymotion Provider = "dailymotion"
	ProviderMixDrop     Provider = "mixdrop"
	ProviderTokyoVideo  Provider = "tokyovideo"
	ProviderYouTube     Provider = "youtube"
	ProviderDirect      Provider = "direct"
	ProviderOther       Provider = "other"
)

// Player is what the storefront needs to render an episode.
type Player struct {
	Kind     Kind     `json:"kind"`
	Src      string   `json:"src"`
	Provider Provider `json:"provider,omitempty"`
}

const (
	dailymotionPlayer = "https://geo.dailymotion.com/player.html?video="
	tokyoVideoEmbed   = "https://www.tokyovideo.com/embed/"
	youTubeEmbed      = "https://www.youtube.com/embed/"
)

var srcAttrRE = regexp.MustCompile(`src=["'](.*?)["']`)

// ExtractIframeSrc returns the src of a pasted HTML snippet. It only looks at
// input that contains "<iframe" or "src="; ok is false otherwise or when no
// quoted src attribute is found.
func ExtractIframeSrc(raw string) (src string, ok bool) {
	if !strings.Contains(raw, "<iframe") && !strings.Contains(raw, "src=") {
		return "", false
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		for _, sel := range []string{"iframe[src]", "video[src]", "source[src]"} {
			if v, exists := doc.Find(sel).First().Attr("src"); exists && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v), true
			}
		}
	}

	// Fragments like `src="..."` without a surrounding tag.
	if m := srcAttrRE.FindStringSubmatch(raw); len(m) == 2 && m[1] != "" {
		return m[1], true
	}
	return "", false
}

// Normalize rewrites a pasted link into a playable embed URL.
// Unknown hosts are returned unchanged. An extracted iframe src is returned
// as-is: snippets copied from a host's share dialog already point at the
// embeddable player.
func Normalize(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}

	if src, ok := ExtractIframeSrc(u); ok {
		return src
	}

	switch {
	case strings.Contains(u, "dailymotion"):
		if _, rest, found := strings.Cut(u, "/video/"); found {
			return dailymotionPlayer + cutAt(rest, "?")
		}
		return u

	case strings.Contains(u, "dai.ly/"):
		_, rest, _ := strings.Cut(u, "dai.ly/")
		if id := cutAt(rest, "?"); id != "" {
			return dailymotionPlayer + id
		}
		return u

	case strings.Contains(u, "mixdrop"):
		if parsed, err := url.Parse(u); err == nil && strings.HasPrefix(parsed.Path, "/f/") {
			parsed.Path = "/e/" + strings.TrimPrefix(parsed.Path, "/f/")
			return parsed.String()
		}
		return u

	case strings.Contains(u, "tokyovideo.com") && strings.Contains(u, "/video/"):
		_, rest, _ := strings.Cut(u, "/video/")
		if id := cutAt(cutAt(rest, "/"), "?"); id != "" {
			return tokyoVideoEmbed + id
		}
		return u

	case strings.Contains(u, "youtube.com") && strings.Contains(u, "watch?v="):
		_, rest, _ := strings.Cut(u, "v=")
		if id := cutAt(rest, "&"); id != "" {
			return youTubeEmbed + id
		}
		return u

	case strings.Contains(u, "youtu.be/"):
		_, rest, _ := strings.Cut(u, "youtu.be/")
		if id := cutAt(rest, "?"); id != "" {
			return youTubeEmbed + id
		}
		return u
	}

	return u
}

// IsDirectVideo reports whether u points at a file a <video> tag can play.
func IsDirectVideo(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, ".mp4") ||
		strings.Contains(lower, ".mkv") ||
		strings.Contains(lower, "mime=video/mp4") ||
		strings.Contains(lower, "googlevideo.com")
}

// DetectProvider names the host behind u. It uses the registrable domain
// when u parses as an absolute URL and falls back to substring checks.
func DetectProvider(u string) Provider {
	if u == "" {
		return ""
	}
	if IsDirectVideo(u) {
		return ProviderDirect
	}

	host := u
	if parsed, err := url.Parse(u); err == nil && parsed.Hostname() != "" {
		host = strings.ToLower(parsed.Hostname())
		if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			host = d
		}
	}

	switch {
	case strings.Contains(host, "dailymotion") || strings.Contains(host, "dai.ly"):
		return ProviderDailymotion
	case strings.Contains(host, "mixdrop"):
		return ProviderMixDrop
	case strings.Contains(host, "tokyovideo.com"):
		return ProviderTokyoVideo
	case strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be"):
		return ProviderYouTube
	default:
		return ProviderOther
	}
}

// Resolve normalizes raw and picks the player element for it.
func Resolve(raw string) Player {
	src := Normalize(raw)
	if src == "" {
		return Player{Kind: KindNone}
	}
	p := Player{Kind: KindIframe, Src: src, Provider: DetectProvider(src)}
	if IsDirectVideo(src) {
		p.Kind = KindVideo
	}
	return p
}

// cutAt returns s up to the first occurrence of sep.
func cutAt(s, sep string) string {
	before, _, _ := strings.Cut(s, sep)
	return before
}
