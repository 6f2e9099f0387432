package startup

import (
	"os"
	"strings"
)

// NormalizeIdentity maps a raw command string to its canonical Identity.
// The executable path is environment-expanded, separator-folded and
// case-folded so that registrations of the same target through different
// mechanisms compare equal. A command that cannot be parsed falls back to
// the folded raw string as identity rather than being dropped.
func NormalizeIdentity(raw string) Identity {
	exe, args := SplitCommand(raw)
	if exe == "" {
		return Identity{Exe: foldPath(strings.TrimSpace(raw))}
	}
	return Identity{
		Exe:  foldPath(ExpandEnvTokens(exe)),
		Args: foldArgs(args),
	}
}

// SplitCommand splits a stored command line into the executable path and the
// remaining argument string. Quoted executables keep embedded spaces.
func SplitCommand(command string) (exe, args string) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", ""
	}

	if rest, ok := strings.CutPrefix(command, `"`); ok {
		if end := strings.Index(rest, `"`); end >= 0 {
			return rest[:end], strings.TrimSpace(rest[end+1:])
		}
		// Unterminated quote: treat the remainder as the path.
		return rest, ""
	}

	if i := strings.IndexAny(command, " \t"); i >= 0 {
		return command[:i], strings.TrimSpace(command[i+1:])
	}
	return command, ""
}

// ShellSplit splits an argument string into individual arguments, honoring
// double quotes.
func ShellSplit(s string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false

	for _, c := range s {
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case (c == ' ' || c == '\t') && !inQuotes:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(c)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// ExpandEnvTokens expands %VAR% tokens against the current environment.
// Tokens whose variable is not set are left verbatim so the caller still
// has a usable (if unresolved) string.
func ExpandEnvTokens(s string) string {
	for {
		start := strings.Index(s, "%")
		if start < 0 {
			return s
		}
		end := strings.Index(s[start+1:], "%")
		if end < 0 {
			return s
		}
		name := s[start+1 : start+1+end]
		value, ok := os.LookupEnv(name)
		if !ok {
			return s
		}
		s = s[:start] + value + s[start+2+end:]
	}
}

// foldPath canonicalizes a filesystem path for identity comparison:
// forward slashes become backslashes, repeated separators collapse, and the
// whole path is lowercased. UNC prefixes keep their leading double slash.
func foldPath(p string) string {
	p = strings.Trim(p, `" `)
	p = strings.ReplaceAll(p, "/", `\`)

	unc := strings.HasPrefix(p, `\\`)
	for strings.Contains(p, `\\`) {
		p = strings.ReplaceAll(p, `\\`, `\`)
	}
	if unc {
		p = `\` + p
	}
	return strings.ToLower(p)
}

func foldArgs(a string) string {
	return strings.ToLower(strings.Join(strings.Fields(a), " "))
}
