package restore

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "github.com/sijms/go-ora/v2"
	_ "github.com/snowflakedb/gosnowflake"
	_ "modernc.org/sqlite"
)

// sqlDrivers maps a restore target's driver name to the database/sql driver
// it connects with.
var sqlDrivers = map[string]string{
	"postgres":  "pgx",
	"mysql":     "mysql",
	"mssql":     "sqlserver",
	"oracle":    "oracle",
	"snowflake": "snowflake",
	"sqlite":    "sqlite",
}

// SupportedDriver reports whether driver names a known database engine.
func SupportedDriver(driver string) bool {
	_, ok := sqlDrivers[driver]
	return ok
}

// SupportedDrivers returns the known engine names, for error messages.
func SupportedDrivers() []string {
	out := make([]string, 0, len(sqlDrivers))
	for k := range sqlDrivers {
		out = append(out, k)
	}
	return out
}

func sqlDriverFor(driver string) (string, error) {
	name, ok := sqlDrivers[driver]
	if !ok {
		return "", fmt.Errorf("unsupported driver %q (available: %v)", driver, SupportedDrivers())
	}
	return name, nil
}

// NormalizeDSN repairs the DSN mistakes operators actually make. URL-style
// DSNs (postgres://, sqlserver://) get their userinfo percent-encoded so a
// raw password containing @, #, or % cannot mis-split the authority
// component. MySQL DSNs are rewritten to the tcp() wrapper go-sql-driver
// requires. Other engines use their own formats and pass through unchanged.
func NormalizeDSN(driver, dsn string) string {
	switch driver {
	case "postgres", "mssql":
		return normalizeURLDSN(dsn)
	case "mysql":
		return normalizeMySQLDSN(dsn)
	default:
		return dsn
	}
}

// mysqlBareHostPort matches "user:pass@host:port/db", the form without the
// tcp() wrapper.
var mysqlBareHostPort = regexp.MustCompile(`^(.+)@([^(@]+:\d+)(/.*)?$`)

func normalizeMySQLDSN(dsn string) string {
	if cfg, err := mysqldriver.ParseDSN(dsn); err == nil && (cfg.Net == "tcp" || cfg.Net == "unix") {
		return cfg.FormatDSN()
	}

	// user:pass@(host:port)/db, the "tcp" keyword missing before the parens.
	if idx := strings.LastIndex(dsn, "@("); idx >= 0 {
		fixed := dsn[:idx] + "@tcp" + dsn[idx+1:]
		if cfg, err := mysqldriver.ParseDSN(fixed); err == nil {
			return cfg.FormatDSN()
		}
	}

	// user:pass@host:port/db, no parens at all.
	if m := mysqlBareHostPort.FindStringSubmatch(dsn); m != nil {
		fixed := m[1] + "@tcp(" + m[2] + ")" + m[3]
		if cfg, err := mysqldriver.ParseDSN(fixed); err == nil {
			return cfg.FormatDSN()
		}
	}

	// Nothing worked; let the connect call produce the error.
	return dsn
}

func normalizeURLDSN(dsn string) string {
	schemeEnd := strings.Index(dsn, "://")
	if schemeEnd < 0 {
		return dsn
	}
	scheme := dsn[:schemeEnd]
	rest := dsn[schemeEnd+3:]

	query := ""
	if qi := strings.IndexByte(rest, '?'); qi >= 0 {
		query = rest[qi:]
		rest = rest[:qi]
	}

	// Everything before the LAST '@' is userinfo.
	atIdx := strings.LastIndex(rest, "@")
	if atIdx < 0 {
		return dsn
	}
	userinfo := rest[:atIdx]
	hostpath := rest[atIdx+1:]

	user := userinfo
	pass := ""
	if ci := strings.IndexByte(userinfo, ':'); ci >= 0 {
		user = userinfo[:ci]
		pass = userinfo[ci+1:]
	}

	return scheme + "://" + url.PathEscape(user) + ":" + url.PathEscape(pass) + "@" + hostpath + query
}

// RedactDSN hides the password portion of a DSN for logs and audit details.
func RedactDSN(dsn string) string {
	if schemeEnd := strings.Index(dsn, "://"); schemeEnd >= 0 {
		rest := dsn[schemeEnd+3:]
		if atIdx := strings.LastIndex(rest, "@"); atIdx >= 0 {
			userinfo := rest[:atIdx]
			if ci := strings.IndexByte(userinfo, ':'); ci >= 0 {
				userinfo = userinfo[:ci] + ":****"
			}
			return dsn[:schemeEnd+3] + userinfo + "@" + rest[atIdx+1:]
		}
		return dsn
	}
	// user:pass@tcp(host)/db style.
	if atIdx := strings.LastIndex(dsn, "@"); atIdx >= 0 {
		userinfo := dsn[:atIdx]
		if ci := strings.IndexByte(userinfo, ':'); ci >= 0 {
			return userinfo[:ci] + ":****" + dsn[atIdx:]
		}
	}
	return dsn
}
