// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"strings"
)

// KeywordResolver handles libpq keyword/value connection strings such as
// "host=localhost port=5432 user=app password='s e c' dbname=test".
type KeywordResolver struct{}

// NewKeywordResolver creates a new keyword/value resolver
func NewKeywordResolver() *KeywordResolver {
	return &KeywordResolver{}
}

// Parse splits the connection string into pairs. Values may be single-quoted,
// with \' and \\ escapes inside quotes.
func (r *KeywordResolver) Parse(dsn string) (*DSNInfo, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, NewParseError(dsn, "empty DSN", "provide a valid PostgreSQL connection string")
	}

	pairs, err := splitPairs(dsn)
	if err != nil {
		return nil, err
	}

	info := &DSNInfo{
		Format:   FormatKeyword,
		Port:     defaultPort,
		Params:   make(map[string]string),
		Original: dsn,
	}
	for key, value := range pairs {
		switch key {
		case "host", "hostaddr":
			if info.Host == "" || key == "host" {
				info.Host = value
			}
		case "port":
			info.Port = value
		case "user":
			info.User = value
		case "password":
			info.Password = value
		case "dbname":
			info.Database = value
		default:
			info.Params[key] = value
		}
	}

	return info, requireFields(info)
}

// Normalize renders the pairs in a fixed order, quoting values when needed.
func (r *KeywordResolver) Normalize(info *DSNInfo) (string, error) {
	if info == nil {
		return "", NewParseError("", "nil DSN info", "")
	}

	port := info.Port
	if port == "" {
		port = defaultPort
	}
	parts := []string{
		"host=" + quoteValue(info.Host),
		"port=" + quoteValue(port),
		"user=" + quoteValue(info.User),
	}
	if info.Password != "" {
		parts = append(parts, "password="+quoteValue(info.Password))
	}
	parts = append(parts, "dbname="+quoteValue(info.Database))
	for _, key := range sortedKeys(info.Params) {
		parts = append(parts, key+"="+quoteValue(info.Params[key]))
	}

	return strings.Join(parts, " "), nil
}

// Validate checks if the keyword DSN is usable
func (r *KeywordResolver) Validate(dsn string) error {
	info, err := r.Parse(dsn)
	if err != nil {
		return err
	}
	return validatePort(dsn, info.Port)
}

func splitPairs(dsn string) (map[string]string, error) {
	pairs := make(map[string]string)
	s := strings.TrimSpace(dsn)

	for s != "" {
		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return nil, NewParseError(dsn, "expected key=value", "separate pairs with spaces, e.g. host=localhost dbname=test")
		}
		key := strings.TrimSpace(s[:eq])
		if strings.ContainsAny(key, " \t") {
			return nil, NewParseError(dsn, "malformed key "+key, "")
		}
		s = strings.TrimLeft(s[eq+1:], " \t")

		var value strings.Builder
		if strings.HasPrefix(s, "'") {
			s = s[1:]
			closed := false
			for i := 0; i < len(s); i++ {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					i++
					value.WriteByte(s[i])
					continue
				}
				if c == '\'' {
					s = s[i+1:]
					closed = true
					break
				}
				value.WriteByte(c)
			}
			if !closed {
				return nil, NewParseError(dsn, "unterminated quoted value for "+key, "close the value with a single quote")
			}
		} else {
			end := strings.IndexAny(s, " \t")
			if end == -1 {
				end = len(s)
			}
			value.WriteString(s[:end])
			s = s[end:]
		}

		pairs[key] = value.String()
		s = strings.TrimLeft(s, " \t")
	}

	return pairs, nil
}

func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`+"\t") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
