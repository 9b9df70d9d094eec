package config

import (
	"net/url"
	"strings"
)

// Redact masks credentials in sensitive config values before logging.
//
// Values for non-sensitive keys pass through unchanged. Sensitive values
// that parse as a URL keep scheme, host and port but lose credentials and
// any non-trivial path; values that do not parse are replaced wholesale.
func Redact(key Key, value string) string {
	if !key.Sensitive() || value == "" {
		return value
	}
	return redactURL(value)
}

func redactURL(value string) string {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" {
		return "[REDACTED]"
	}

	userinfo := ""
	if u.User != nil {
		userinfo = "***@"
		if _, hasPassword := u.User.Password(); hasPassword {
			userinfo = "***:***@"
		}
		u.User = nil
	}

	if u.Path != "" && u.Path != "/" {
		u.Path = "/***"
		u.RawPath = "/***"
	}

	// url.URL.String percent-encodes '*' in userinfo, so the masked
	// userinfo is spliced in after serialisation.
	s := u.String()
	if userinfo != "" {
		s = strings.Replace(s, "://", "://"+userinfo, 1)
	}
	return s
}
