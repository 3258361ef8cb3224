package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

const kindUnknown = "unknown"

// ClassifyError buckets an outbound failure into the err_kind log field:
// timeout, canceled, dns, dial, tls, flood, http_4xx, http_5xx or unknown.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	if kind := networkKind(err); kind != "" {
		return kind
	}
	switch code := HTTPStatus(err); {
	case code == http.StatusTooManyRequests:
		return "flood"
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	}
	return kindUnknown
}

// networkKind classifies transport errors, unwrapping url and op errors so
// the innermost cause decides. It returns "" for non-network errors.
func networkKind(err error) string {
	if dnsErr := (*net.DNSError)(nil); errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}
	if netErr := net.Error(nil); errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if opErr := (*net.OpError)(nil); errors.As(err, &opErr) {
		switch opErr.Op {
		case "dial":
			return "dial"
		case "read", "write":
			if k := ClassifyError(opErr.Err); k != kindUnknown {
				return k
			}
		}
	}
	if urlErr := (*url.Error)(nil); errors.As(err, &urlErr) && urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
		if k := ClassifyError(urlErr.Err); k != kindUnknown {
			return k
		}
	}
	if alert := tls.AlertError(0); errors.As(err, &alert) {
		return "tls"
	}
	return ""
}

// SanitizeError renders err with any bot token redacted.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// HTTPStatus extracts the Bot API status code carried by err, or 0. Plain
// errors are matched on a trailing "(code)" as telebot formats them.
func HTTPStatus(err error) int {
	if err == nil {
		return 0
	}
	if apiErr := (*tele.Error)(nil); errors.As(err, &apiErr) {
		return apiErr.Code
	}
	if errors.As(err, new(tele.FloodError)) {
		return http.StatusTooManyRequests
	}
	if errors.As(err, new(tele.GroupError)) {
		return http.StatusBadRequest
	}

	msg := strings.TrimSpace(err.Error())
	open, end := strings.LastIndexByte(msg, '('), strings.LastIndexByte(msg, ')')
	if open < 0 || end <= open+1 {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : end]))
	if convErr != nil {
		return 0
	}
	return code
}
