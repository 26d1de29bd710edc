package scan

import (
	"net/mail"
	"strings"
	"time"

	"go.withmatt.com/mailsweep/internal/gmail"
)

// UnknownSender is the sender address recorded when the From header is
// absent or unparsable. The summary is still produced.
const UnknownSender = "unknown@unknown"

// oneClickPostValue is the exact List-Unsubscribe-Post value required by
// RFC 8058 for one-click unsubscribe.
const oneClickPostValue = "List-Unsubscribe=One-Click"

// newsletterKeywords are matched case-insensitively as substrings of the
// sender's local part.
var newsletterKeywords = []string{
	"newsletter",
	"noreply",
	"no-reply",
	"notification",
	"promo",
	"marketing",
	"news",
	"info",
	"updates",
}

// TargetKind tags an UnsubscribeTarget.
type TargetKind int

const (
	// TargetHTTP is an http(s) URL.
	TargetHTTP TargetKind = iota
	// TargetMailto is a mailto address. Never auto-executed.
	TargetMailto
	// TargetUnsupported is a List-Unsubscribe header whose entries are
	// neither http(s) nor mailto.
	TargetUnsupported
)

// UnsubscribeTarget is the single target selected from a List-Unsubscribe
// header. Value is the URL for TargetHTTP, the address for TargetMailto and
// empty for TargetUnsupported.
type UnsubscribeTarget struct {
	Kind  TargetKind
	Value string
}

// IsHTTPS reports whether the target is an https URL.
func (t UnsubscribeTarget) IsHTTPS() bool {
	return t.Kind == TargetHTTP && strings.HasPrefix(strings.ToLower(t.Value), "https://")
}

// MessageSummary is the parsed, structured view of one message's headers.
type MessageSummary struct {
	ID             gmail.MessageID
	Sender         string // normalized, lowercase local@domain
	DisplayName    string // best-effort, may be empty
	Subject        string
	SentAt         *time.Time // nil when the Date header is missing or unparsable
	Unsubscribe    *UnsubscribeTarget
	OneClick       bool
	MatchedKeyword bool
}

// ParseSummary converts raw headers into a MessageSummary. It is total:
// malformed fields degrade to defaults and never discard the summary.
func ParseSummary(id gmail.MessageID, raw gmail.RawHeaders) MessageSummary {
	from := raw.Get("From")
	sender, displayName := normalizeSender(from)

	summary := MessageSummary{
		ID:          id,
		Sender:      sender,
		DisplayName: displayName,
		Subject:     strings.TrimSpace(raw.Get("Subject")),
		SentAt:      parseDate(raw.Get("Date")),
	}

	if raw.Has("List-Unsubscribe") {
		target := selectUnsubscribeTarget(raw.Get("List-Unsubscribe"))
		summary.Unsubscribe = &target
	}

	// One-click requires both the exact RFC 8058 Post header value and an
	// HTTP target; a mailto target is never one-click no matter what the
	// Post header claims.
	if summary.Unsubscribe != nil && summary.Unsubscribe.Kind == TargetHTTP {
		post := strings.TrimSpace(raw.Get("List-Unsubscribe-Post"))
		summary.OneClick = post == oneClickPostValue
	}

	summary.MatchedKeyword = matchesKeyword(sender)
	return summary
}

// normalizeSender extracts the lowercase local@domain from a From header,
// plus a best-effort display name. Unparsable input yields UnknownSender.
func normalizeSender(from string) (address, displayName string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return UnknownSender, ""
	}

	if addr, err := mail.ParseAddress(from); err == nil {
		address = strings.ToLower(strings.TrimSpace(addr.Address))
		if strings.IndexByte(address, '@') > 0 {
			return address, strings.TrimSpace(addr.Name)
		}
	}

	// Crude fallback for headers net/mail rejects: take whatever sits
	// inside the first angle-bracket pair, else the whole value.
	candidate := from
	if open := strings.IndexByte(from, '<'); open >= 0 {
		if close := strings.IndexByte(from[open:], '>'); close > 0 {
			candidate = from[open+1 : open+close]
			displayName = strings.Trim(strings.TrimSpace(from[:open]), `"'`)
		}
	}
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	if strings.IndexByte(candidate, '@') > 0 && !strings.ContainsAny(candidate, " \t<>") {
		return candidate, displayName
	}
	return UnknownSender, ""
}

// dateLayouts covers the common deviations from RFC 2822 that net/mail's
// parser rejects.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04:05",
}

// parseDate parses a Date header, accepting RFC 2822 plus common deviations
// (missing timezone, obsolete GMT/+0000 forms). Returns nil on failure.
func parseDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if t, err := mail.ParseDate(value); err == nil {
		utc := t.UTC()
		return &utc
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// selectUnsubscribeTarget picks exactly one target from a List-Unsubscribe
// header value. Priority: https URL, then http URL, then mailto; anything
// else is Unsupported.
func selectUnsubscribeTarget(header string) UnsubscribeTarget {
	var httpsTarget, httpTarget, mailtoTarget string

	for _, entry := range splitTargets(header) {
		lower := strings.ToLower(entry)
		switch {
		case strings.HasPrefix(lower, "https://"):
			if httpsTarget == "" {
				httpsTarget = entry
			}
		case strings.HasPrefix(lower, "http://"):
			if httpTarget == "" {
				httpTarget = entry
			}
		case strings.HasPrefix(lower, "mailto:"):
			if mailtoTarget == "" {
				mailtoTarget = entry[len("mailto:"):]
			}
		}
	}

	switch {
	case httpsTarget != "":
		return UnsubscribeTarget{Kind: TargetHTTP, Value: httpsTarget}
	case httpTarget != "":
		return UnsubscribeTarget{Kind: TargetHTTP, Value: httpTarget}
	case mailtoTarget != "":
		return UnsubscribeTarget{Kind: TargetMailto, Value: mailtoTarget}
	default:
		return UnsubscribeTarget{Kind: TargetUnsupported}
	}
}

// splitTargets breaks a List-Unsubscribe value into its comma-separated
// angle-bracketed entries. Commas inside <...> do not split.
func splitTargets(header string) []string {
	var targets []string
	rest := header
	for {
		open := strings.IndexByte(rest, '<')
		if open < 0 {
			break
		}
		close := strings.IndexByte(rest[open:], '>')
		if close < 0 {
			break
		}
		entry := strings.TrimSpace(rest[open+1 : open+close])
		if entry != "" {
			targets = append(targets, entry)
		}
		rest = rest[open+close+1:]
	}
	if len(targets) > 0 {
		return targets
	}

	// Some senders omit the angle brackets entirely.
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			targets = append(targets, part)
		}
	}
	return targets
}

func matchesKeyword(address string) bool {
	at := strings.IndexByte(address, '@')
	if at <= 0 {
		return false
	}
	local := strings.ToLower(address[:at])
	for _, keyword := range newsletterKeywords {
		if strings.Contains(local, keyword) {
			return true
		}
	}
	return false
}
