package gcal

import (
	"encoding/base64"
	"net/url"
	"strings"
)

const (
	// PrimaryCalendarID is Google's sentinel for the user's own primary calendar.
	PrimaryCalendarID = "primary"

	calendarHost = "calendar.google.com"

	// Shared and group calendar ids end with this suffix
	// (e.g. "abc123@group.calendar.google.com").
	calendarDomainSuffix = "calendar.google.com"
)

// ResolveCalendarID turns a user-pasted string into a canonical calendar
// identifier. Plain identifiers ("primary", an email address) pass through
// unchanged; "share this calendar" links from the Google Calendar web UI are
// unwrapped to the underlying identifier. The function never fails: any input
// that cannot be recognized as a share link is returned verbatim.
func ResolveCalendarID(input string) string {
	candidate := input
	if strings.HasPrefix(candidate, calendarHost) {
		// Bare host without a scheme; prepend one so url.Parse accepts it.
		candidate = "https://" + candidate
	}

	if !strings.Contains(candidate, calendarHost) {
		return input
	}

	u, err := url.Parse(candidate)
	if err != nil || !strings.Contains(u.Host, calendarHost) {
		return input
	}

	query := u.Query()
	if cid := query.Get("cid"); cid != "" {
		if decoded, ok := decodeCalendarCID(cid); ok {
			return decoded
		}
		return cid
	}
	if src := query.Get("src"); src != "" {
		// url.Values already percent-decodes, so "team%40example.com"
		// comes back as "team@example.com".
		return src
	}

	return input
}

// decodeCalendarCID attempts to base64-decode a "cid" query parameter. The
// decoded value is accepted only if it plausibly is a calendar identifier; a
// cid that decodes to binary garbage is rejected so the caller can fall back
// to the raw parameter value.
func decodeCalendarCID(cid string) (string, bool) {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		decoded, err := enc.DecodeString(cid)
		if err != nil {
			continue
		}
		id := string(decoded)
		if looksLikeCalendarID(id) {
			return id, true
		}
	}
	return "", false
}

// looksLikeCalendarID reports whether s is shaped like an email address or a
// Google calendar identifier.
func looksLikeCalendarID(s string) bool {
	if strings.HasSuffix(s, calendarDomainSuffix) {
		return true
	}
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.ContainsAny(s, " \t\n")
}
