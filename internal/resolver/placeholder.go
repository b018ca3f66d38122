package resolver

import (
	"fmt"
	"strings"
)

// Placeholders configures `${name}`-style token substitution in SQL
// migration scripts, per the placeholderPrefix/placeholderSuffix/
// placeholders.<name> configuration surface.
type Placeholders struct {
	Values map[string]string
	Prefix string
	Suffix string
}

// Substitute replaces every `<prefix><name><suffix>` token in script with
// its configured value. A token whose name has no configured value is an
// error.
func (p Placeholders) Substitute(script string) (string, error) {
	if p.Prefix == "" || p.Suffix == "" {
		return script, nil
	}

	var b strings.Builder

	rest := script

	for {
		start := strings.Index(rest, p.Prefix)
		if start < 0 {
			b.WriteString(rest)
			break
		}

		end := strings.Index(rest[start+len(p.Prefix):], p.Suffix)
		if end < 0 {
			b.WriteString(rest)
			break
		}

		name := rest[start+len(p.Prefix) : start+len(p.Prefix)+end]

		value, ok := p.Values[name]
		if !ok {
			return "", fmt.Errorf("%w: %s%s%s", ErrPlaceholderUnresolved, p.Prefix, name, p.Suffix)
		}

		b.WriteString(rest[:start])
		b.WriteString(value)

		rest = rest[start+len(p.Prefix)+end+len(p.Suffix):]
	}

	return b.String(), nil
}
