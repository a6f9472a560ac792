package mongo

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/subtrackapp/subtrack/pkg/environment"
)

// NormalizeOption adjusts URI normalization behavior.
type NormalizeOption func(*normalizeConfig)

type normalizeConfig struct {
	preserveDBName bool
}

// PreserveDatabaseName keeps a database name already present in the URI
// instead of overwriting it with the configured default. The overwrite is
// the historical default behavior; callers that intentionally target
// multiple databases should pass this option.
func PreserveDatabaseName() NormalizeOption {
	return func(c *normalizeConfig) { c.preserveDBName = true }
}

// Normalize validates and rewrites a raw connection string into canonical
// form: the path names exactly one database and the query string carries
// retryWrites=true and w=majority unless the caller already set them.
//
// Normalize never fails. When the input does not parse as a URL it falls
// back to raw string manipulation and still returns a best-effort canonical
// string.
func Normalize(raw, defaultDB string, opts ...NormalizeOption) string {
	var cfg normalizeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") {
		return normalizeFallback(raw, defaultDB)
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	switch {
	case dbName == "" || !validDatabaseName(dbName):
		u.Path = "/" + defaultDB
	case dbName != defaultDB && !cfg.preserveDBName:
		u.Path = "/" + defaultDB
	default:
		u.Path = "/" + dbName
	}

	q := u.Query()
	if !q.Has("retryWrites") {
		q.Set("retryWrites", "true")
	}
	if !q.Has("w") {
		q.Set("w", "majority")
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// normalizeFallback rebuilds a canonical string from an unparsable URI:
// everything after the first '?' is dropped, the path is reduced to a single
// trailing slash and the default database plus required parameters are
// appended.
func normalizeFallback(raw, defaultDB string) string {
	base := raw
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimRight(base, "/") + "/"
	return base + defaultDB + "?retryWrites=true&w=majority"
}

// validDatabaseName rejects path segments MongoDB does not accept as
// database names.
func validDatabaseName(name string) bool {
	return !strings.ContainsAny(name, `/\. "$`)
}

// The userinfo match stops at the first path or query delimiter so an '@'
// later in the string (query values, path segments) is left alone.
var credentialsPattern = regexp.MustCompile(`(mongodb(?:\+srv)?://)[^/?#]*@`)

// Sanitize masks credentials in a connection string so it can be logged.
// The replacement is applied on the raw string, so it works even for URIs
// that do not parse.
func Sanitize(uri string) string {
	return credentialsPattern.ReplaceAllString(uri, "${1}***:***@")
}

// Validate reports whether the connection string is usable in the given
// tier. Every tier requires a mongodb scheme and a hostname; production
// additionally requires credentials. Validate never fails, it only reports.
func Validate(uri string, env environment.Environment) bool {
	if uri == "" {
		return false
	}
	u, err := url.Parse(uri)
	if err != nil {
		return false
	}
	if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
		return false
	}
	if u.Host == "" {
		return false
	}
	if env.IsProduction() {
		if u.User == nil {
			return false
		}
		pass, hasPass := u.User.Password()
		if u.User.Username() == "" || !hasPass || pass == "" {
			return false
		}
	}
	return true
}
