package rawsql

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Placeholder selects the positional parameter style for a target database.
// Statements built by this package are written with "?" and rewritten.
//
//   - PlaceholderQuestion   → "?"           (MySQL, SQLite, DuckDB, ClickHouse)
//   - PlaceholderDollar     → "$1, $2, …"  (PostgreSQL)
//   - PlaceholderAtP        → "@p1, @p2…"  (SQL Server)
//   - PlaceholderColonNum   → ":1, :2, …"  (Oracle)
type Placeholder int

const (
	PlaceholderQuestion Placeholder = iota
	PlaceholderDollar
	PlaceholderAtP
	PlaceholderColonNum
)

// PlaceholderFor picks a Placeholder based on a driver name string.
//
//	ph := rawsql.PlaceholderFor("pgx")       // => PlaceholderDollar
//	ph := rawsql.PlaceholderFor("sqlserver") // => PlaceholderAtP
//	ph := rawsql.PlaceholderFor("sqlite")    // => PlaceholderQuestion
func PlaceholderFor(driverName string) Placeholder {
	switch strings.ToLower(driverName) {
	case "pgx", "postgres", "postgresql", "lib/pq", "pg":
		return PlaceholderDollar
	case "sqlserver", "mssql":
		return PlaceholderAtP
	case "godror", "oracle", "goracle":
		return PlaceholderColonNum
	default:
		return PlaceholderQuestion
	}
}

// checkReadOnly accepts only statements whose leading keyword is SELECT.
func checkReadOnly(query string) error {
	kw := leadingKeyword(query)
	if !strings.EqualFold(kw, "SELECT") {
		return &InvalidQueryError{Statement: strings.ToUpper(kw), Query: query}
	}
	return nil
}

// leadingKeyword returns the first word of query, skipping whitespace and
// comments. When the first token is not a word, its first character is
// returned instead. It returns "" only for a blank or comment-only query.
func leadingKeyword(query string) string {
	i := 0
	for i < len(query) {
		switch c := query[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			i++
		case hasPrefix(query[i:], "--"):
			i = skipLineComment(query, i+2)
		case hasPrefix(query[i:], "/*"):
			j, ok := skipBlockComment(query, i+2)
			if !ok {
				return ""
			}
			i = j
		default:
			j := i
			for j < len(query) && isWordByte(query[j]) {
				j++
			}
			if j == i {
				_, w := utf8.DecodeRuneInString(query[i:])
				j = i + w
			}
			return query[i:j]
		}
	}
	return ""
}

// rewritePlaceholders turns each "?" outside quotes and comments into the
// style ph uses.
func rewritePlaceholders(query string, ph Placeholder) string {
	if ph == PlaceholderQuestion {
		return query
	}
	out := make([]byte, 0, len(query)+16)
	i, arg := 0, 1

	for i < len(query) {
		c := query[i]
		j := -1
		switch {
		case c == '\'' || c == '"' || c == '`':
			j = skipQuoted(query, i+1, c)
		case hasPrefix(query[i:], "--"):
			j = skipLineComment(query, i+2)
		case hasPrefix(query[i:], "/*"):
			if k, ok := skipBlockComment(query, i+2); ok {
				j = k
			} else {
				j = len(query)
			}
		case c == '?':
			switch ph {
			case PlaceholderDollar:
				out = append(out, '$')
			case PlaceholderAtP:
				out = append(out, '@', 'p')
			case PlaceholderColonNum:
				out = append(out, ':')
			}
			out = strconv.AppendInt(out, int64(arg), 10)
			arg++
			i++
			continue
		}
		if j >= 0 {
			out = append(out, query[i:j]...)
			i = j
			continue
		}
		_, w := utf8.DecodeRuneInString(query[i:])
		out = append(out, query[i:i+w]...)
		i += w
	}
	return string(out)
}

// skipQuoted returns the index just past the closing quote q, treating a
// doubled quote as an escape. Unterminated text runs to the end.
func skipQuoted(s string, i int, q byte) int {
	for i < len(s) {
		if s[i] == q {
			if i+1 < len(s) && s[i+1] == q {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(s)
}

func skipLineComment(s string, i int) int {
	for i < len(s) {
		if s[i] == '\n' {
			return i + 1
		}
		i++
	}
	return i
}

func skipBlockComment(s string, i int) (int, bool) {
	for i < len(s)-1 {
		if s[i] == '*' && s[i+1] == '/' {
			return i + 2, true
		}
		i++
	}
	return len(s), false
}

func isWordByte(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func hasPrefix(s, p string) bool { return len(s) >= len(p) && s[:len(p)] == p }
