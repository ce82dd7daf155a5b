// Package statement splits a raw SQL text blob into individually typed
// statements. It is the first stage of the query execution pipeline: every
// adapter runs text through Identify before dispatching to the driver, both
// to label results with a command name and to decide whether a
// driver-reported "no rows" result represents an empty SELECT or a
// side-effecting command.
package statement

import "strings"

// Type enumerates the statement kinds the gateway recognizes. Anything
// whose leading keyword isn't in this set classifies as Unknown, which is
// non-fatal: the statement is still executed, just unlabeled.
type Type string

const (
	Select         Type = "SELECT"
	Insert         Type = "INSERT"
	Update         Type = "UPDATE"
	Delete         Type = "DELETE"
	CreateDatabase Type = "CREATE_DATABASE"
	DropDatabase   Type = "DROP_DATABASE"
	CreateTable    Type = "CREATE_TABLE"
	CreateView     Type = "CREATE_VIEW"
	CreateTrigger  Type = "CREATE_TRIGGER"
	Explain        Type = "EXPLAIN"
	Unknown        Type = "UNKNOWN"
)

// Statement is one classified piece of a multi-statement text blob.
type Statement struct {
	Type Type
	Text string
}

// leadingKeywords maps a normalized (upper-cased, whitespace-collapsed)
// prefix of a statement to its Type. Multi-word CREATE variants must be
// checked before the bare "CREATE" fallback, so classify walks them in a
// fixed, longest-prefix-first order.
var multiWordKeywords = []struct {
	prefix string
	typ    Type
}{
	{"CREATE DATABASE", CreateDatabase},
	{"CREATE SCHEMA", CreateDatabase},
	{"DROP DATABASE", DropDatabase},
	{"DROP SCHEMA", DropDatabase},
	{"CREATE TABLE", CreateTable},
	{"CREATE OR REPLACE VIEW", CreateView},
	{"CREATE VIEW", CreateView},
	{"CREATE OR REPLACE TRIGGER", CreateTrigger},
	{"CREATE TRIGGER", CreateTrigger},
}

var singleWordKeywords = map[string]Type{
	"SELECT":  Select,
	"INSERT":  Insert,
	"UPDATE":  Update,
	"DELETE":  Delete,
	"EXPLAIN": Explain,
}

// Identify splits text on top-level semicolons (ignoring those inside
// string literals or comments), strips comments from each piece, and
// classifies the remaining statements. Empty input yields an empty slice.
// Purely-comment or whitespace-only fragments between semicolons are
// dropped rather than yielding a spurious Unknown entry.
func Identify(text string) []Statement {
	var out []Statement
	for _, raw := range splitStatements(text) {
		stripped := strings.TrimSpace(stripComments(raw))
		if stripped == "" {
			continue
		}
		out = append(out, Statement{Type: classify(stripped), Text: stripped})
	}
	if out == nil {
		out = []Statement{}
	}
	return out
}

// splitStatements splits on ';' that appear outside single/double-quoted
// string literals and outside line/block comments.
func splitStatements(text string) []string {
	var parts []string
	var cur strings.Builder
	n := len(text)
	i := 0
	for i < n {
		ch := text[i]

		// Line comment: copy through to end of line, semicolons inside don't split.
		if ch == '-' && i+1 < n && text[i+1] == '-' {
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				cur.WriteString(text[i:])
				i = n
				break
			}
			cur.WriteString(text[i : i+end+1])
			i += end + 1
			continue
		}

		// Block comment.
		if ch == '/' && i+1 < n && text[i+1] == '*' {
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				cur.WriteString(text[i:])
				i = n
				break
			}
			cur.WriteString(text[i : i+2+end+2])
			i += 2 + end + 2
			continue
		}

		// Quoted string literal (single or double quote), doubled-quote escape.
		if ch == '\'' || ch == '"' {
			quote := ch
			start := i
			i++
			for i < n {
				if text[i] == quote {
					if i+1 < n && text[i+1] == quote {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			cur.WriteString(text[start:i])
			continue
		}

		if ch == ';' {
			parts = append(parts, cur.String())
			cur.Reset()
			i++
			continue
		}

		cur.WriteByte(ch)
		i++
	}
	if strings.TrimSpace(cur.String()) != "" {
		parts = append(parts, cur.String())
	}
	return parts
}

// stripComments removes -- line comments and /* */ block comments from a
// single statement, preserving the contents of string literals.
func stripComments(text string) string {
	var out strings.Builder
	n := len(text)
	i := 0
	for i < n {
		ch := text[i]

		if ch == '-' && i+1 < n && text[i+1] == '-' {
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				break
			}
			i += end + 1
			out.WriteByte('\n')
			continue
		}

		if ch == '/' && i+1 < n && text[i+1] == '*' {
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				break
			}
			i += 2 + end + 2
			out.WriteByte(' ')
			continue
		}

		if ch == '\'' || ch == '"' {
			quote := ch
			start := i
			i++
			for i < n {
				if text[i] == quote {
					if i+1 < n && text[i+1] == quote {
						i += 2
						continue
					}
					i++
					break
				}
				i++
			}
			out.WriteString(text[start:i])
			continue
		}

		out.WriteByte(ch)
		i++
	}
	return out.String()
}

// classify identifies the leading keyword of an already comment-stripped,
// trimmed statement.
func classify(text string) Type {
	upper := strings.ToUpper(text)
	upper = collapseSpace(upper)

	for _, mk := range multiWordKeywords {
		if strings.HasPrefix(upper, mk.prefix) {
			return mk.typ
		}
	}

	word := firstWord(upper)
	if t, ok := singleWordKeywords[word]; ok {
		return t
	}
	return Unknown
}

func firstWord(s string) string {
	i := strings.IndexAny(s, " \t\n\r(")
	if i < 0 {
		return s
	}
	return s[:i]
}

// collapseSpace normalizes runs of whitespace to single spaces so
// multi-word keyword prefixes match regardless of original formatting.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
