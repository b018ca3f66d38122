package resolver

import (
	"fmt"
	"strings"

	"github.com/flowmigrate/flowmigrate/internal/version"
)

// parsedName is the version and description extracted from a script
// filename of the form <prefix><version>__<description><suffix>.
type parsedName struct {
	version     version.Version
	description string
}

// parseFilename splits name on the first "__" after stripping prefix and
// suffix, per the fixed naming scheme: <sqlMigrationPrefix><version>__
// <description><sqlMigrationSuffix>, e.g. V1_2__add_users.sql.
func parseFilename(name, prefix, suffix string) (parsedName, bool, error) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return parsedName{}, false, nil
	}

	body := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)

	idx := strings.Index(body, "__")
	if idx < 0 {
		return parsedName{}, false, nil
	}

	versionPart := body[:idx]
	descriptionPart := body[idx+2:]

	v, err := version.Parse(versionPart)
	if err != nil {
		return parsedName{}, true, fmt.Errorf("%w: %s: %w", ErrResolve, name, err)
	}

	return parsedName{
		version:     v,
		description: strings.ReplaceAll(descriptionPart, "_", " "),
	}, true, nil
}
