// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package coordination

import (
	"context"
	"net/url"
	"sort"
	"strings"
)

// ExactURLStrategy groups events sharing the same canonicalized link.
// URLs are canonicalized before equality comparison: tracking parameters
// are stripped, known alias domains are normalized, percent-encoding is
// decoded and trailing slashes removed. URLs that carry no information
// about the shared content (bare platform domains, login/redirect URLs,
// share-intent links) are excluded entirely.
//
// The link strategy never performs external content search; the batch is
// authoritative for link shares.
type ExactURLStrategy struct {
	minActors int
}

// NewExactURLStrategy creates the exact-URL matching strategy.
func NewExactURLStrategy(cfg Config) *ExactURLStrategy {
	minActors := cfg.MinDistinctActors
	if minActors < 2 {
		minActors = 2
	}
	return &ExactURLStrategy{minActors: minActors}
}

// Type returns the strategy identifier.
func (s *ExactURLStrategy) Type() StrategyType {
	return StrategyExactURL
}

// Group canonicalizes every event's URL and groups events by canonical form.
func (s *ExactURLStrategy) Group(_ context.Context, events []Event) ([]ContentGroup, error) {
	byKey := make(map[string][]Event)
	for _, ev := range events {
		if ev.ContentKey == "" {
			continue
		}
		canonical, ok := CanonicalizeURL(ev.ContentKey)
		if !ok {
			continue
		}
		ev.ContentKey = canonical
		byKey[canonical] = append(byKey[canonical], ev)
	}
	return buildGroups(byKey, s.minActors), nil
}

// trackingParams are query parameters that identify the sharer or campaign,
// not the content. Any parameter with the "utm_" prefix is also stripped.
var trackingParams = map[string]struct{}{
	"fbclid":   {},
	"gclid":    {},
	"gclsrc":   {},
	"dclid":    {},
	"msclkid":  {},
	"yclid":    {},
	"igshid":   {},
	"igsh":     {},
	"mc_cid":   {},
	"mc_eid":   {},
	"mkt_tok":  {},
	"_ga":      {},
	"ref":      {},
	"ref_src":  {},
	"ref_url":  {},
	"referrer": {},
	"ncid":     {},
	"ocid":     {},
	"smid":     {},
	"cmpid":    {},
	"si":       {},
	"feature":  {},
	"share_id": {},
}

// hostAliases maps mobile and mirror hostnames to their canonical domain.
var hostAliases = map[string]string{
	"m.facebook.com":      "facebook.com",
	"mbasic.facebook.com": "facebook.com",
	"m.youtube.com":       "youtube.com",
	"mobile.twitter.com":  "twitter.com",
	"x.com":               "twitter.com",
	"m.vk.com":            "vk.com",
}

// redirectorHosts wrap outbound links behind click-tracking endpoints.
// The wrapped URL is opaque without resolving, so these are uninformative.
var redirectorHosts = map[string]struct{}{
	"l.facebook.com":  {},
	"lm.facebook.com": {},
	"l.instagram.com": {},
	"out.reddit.com":  {},
	"t.umblr.com":     {},
	"href.li":         {},
}

// shareIntentHosts point at "share this" dialogs, not content.
var shareIntentHosts = map[string]struct{}{
	"api.whatsapp.com": {},
	"wa.me":            {},
	"web.whatsapp.com": {},
}

// CanonicalizeURL reduces a raw URL to its canonical comparable form.
// The second return value is false when the URL is malformed or judged
// uninformative (bare domain, login/redirect, share-intent link).
func CanonicalizeURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if alias, ok := hostAliases[host]; ok {
		host = alias
	}

	if _, ok := redirectorHosts[host]; ok {
		return "", false
	}
	if _, ok := shareIntentHosts[host]; ok {
		return "", false
	}

	// url.Parse stores the decoded path, so rebuilding below normalizes
	// percent-encoding differences between otherwise identical URLs.
	path := strings.TrimSuffix(u.Path, "/")

	if isSharePath(host, path) || isLoginPath(path) {
		return "", false
	}

	query := canonicalQuery(u.Query())

	// YouTube short links resolve to the watch URL so both forms compare equal.
	if host == "youtu.be" {
		id := strings.TrimPrefix(path, "/")
		if id == "" {
			return "", false
		}
		host = "youtube.com"
		path = "/watch"
		query = "v=" + id
	}

	// A bare platform domain identifies nothing that was shared.
	if path == "" && query == "" {
		return "", false
	}

	canonical := "https://" + host + path
	if query != "" {
		canonical += "?" + query
	}
	return canonical, true
}

// isLoginPath reports whether the path points at an authentication flow.
func isLoginPath(path string) bool {
	lower := strings.ToLower(path)
	for _, marker := range []string{"/login", "/signin", "/sign-in", "/signup", "/oauth", "/auth/"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// isSharePath reports whether host+path is a share-intent dialog.
func isSharePath(host, path string) bool {
	lower := strings.ToLower(path)
	switch host {
	case "twitter.com":
		return strings.HasPrefix(lower, "/intent/")
	case "facebook.com":
		return strings.HasPrefix(lower, "/sharer") || lower == "/share.php" || strings.HasPrefix(lower, "/dialog/share")
	case "t.me", "telegram.me":
		return strings.HasPrefix(lower, "/share")
	case "linkedin.com":
		return strings.HasPrefix(lower, "/sharearticle") || strings.HasPrefix(lower, "/sharing/")
	case "reddit.com":
		return lower == "/submit"
	case "pinterest.com":
		return strings.HasPrefix(lower, "/pin/create")
	}
	return false
}

// canonicalQuery drops tracking parameters and renders the remainder with
// keys sorted, so parameter order never affects equality.
func canonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if _, tracked := trackingParams[strings.ToLower(k)]; tracked {
			continue
		}
		if strings.HasPrefix(strings.ToLower(k), "utm_") {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		vals := values[k]
		sort.Strings(vals)
		for j, v := range vals {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
