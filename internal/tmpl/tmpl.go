package tmpl

import "strings"

// Env resolves placeholder identifiers to their values during substitution.
type Env interface {
	// Lookup returns the value for an identifier and whether it is known.
	Lookup(name string) (string, bool)
}

// MapEnv adapts a plain map to the Env interface.
type MapEnv map[string]string

// Lookup implements Env.
func (m MapEnv) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// scanIdent returns the identifier starting at s[i:], or "" if none starts there.
func scanIdent(s string, i int) string {
	if i >= len(s) || !isIdentStart(s[i]) {
		return ""
	}
	j := i + 1
	for j < len(s) && isIdent(s[j]) {
		j++
	}
	return s[i:j]
}

// Gather collects the set of placeholder identifiers referenced by a
// template string. `$$` escapes do not count as references.
func Gather(s string) []string {
	seen := map[string]struct{}{}
	var names []string
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i+1 >= len(s) {
			continue
		}
		switch {
		case s[i+1] == '$':
			i++
		case s[i+1] == '{':
			if end := strings.IndexByte(s[i+2:], '}'); end >= 0 {
				name := s[i+2 : i+2+end]
				if name != "" && name == scanIdent(name, 0) {
					if _, ok := seen[name]; !ok {
						seen[name] = struct{}{}
						names = append(names, name)
					}
				}
				i += 2 + end
			}
		default:
			if name := scanIdent(s, i+1); name != "" {
				if _, ok := seen[name]; !ok {
					seen[name] = struct{}{}
					names = append(names, name)
				}
				i += len(name)
			}
		}
	}
	return names
}

// GatherList is Gather over a list of template strings, deduplicated.
func GatherList(items []string) []string {
	seen := map[string]struct{}{}
	var names []string
	for _, s := range items {
		for _, n := range Gather(s) {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				names = append(names, n)
			}
		}
	}
	return names
}

// Substitute replaces placeholders from env. Unknown identifiers and
// malformed placeholders are left exactly as written; `$$` becomes `$`.
func Substitute(s string, env Env) string {
	if !strings.ContainsRune(s, '$') {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		switch {
		case s[i+1] == '$':
			sb.WriteByte('$')
			i++
		case s[i+1] == '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				sb.WriteByte(c)
				continue
			}
			name := s[i+2 : i+2+end]
			if v, ok := lookupIdent(name, env); ok {
				sb.WriteString(v)
			} else {
				sb.WriteString(s[i : i+3+end])
			}
			i += 2 + end
		default:
			name := scanIdent(s, i+1)
			if name == "" {
				sb.WriteByte(c)
				continue
			}
			if v, ok := env.Lookup(name); ok {
				sb.WriteString(v)
			} else {
				sb.WriteString(s[i : i+1+len(name)])
			}
			i += len(name)
		}
	}
	return sb.String()
}

// lookupIdent resolves a braced placeholder body, requiring it to be a
// well-formed identifier.
func lookupIdent(name string, env Env) (string, bool) {
	if name == "" || name != scanIdent(name, 0) {
		return "", false
	}
	return env.Lookup(name)
}

// SubstituteList applies Substitute to each element of a list.
func SubstituteList(items []string, env Env) []string {
	if items == nil {
		return nil
	}
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = Substitute(s, env)
	}
	return out
}
