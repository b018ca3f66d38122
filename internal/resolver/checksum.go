package resolver

import (
	"hash/crc32"
	"strings"
)

// checksum computes the 32-bit checksum for a SQL migration's script bytes.
//
// Open question resolution (see SPEC_FULL.md §10): the checksum is computed
// BEFORE placeholder substitution, over the script's raw bytes with line
// endings normalized to "\n". Computing it before substitution means
// changing a placeholder's configured value (e.g. a per-environment schema
// name) never invalidates the ledger, while editing the script itself always
// does — substitution happens identically on every run from the same file,
// so checksumming after it would only ever reproduce the same value anyway,
// but tying the checksum to the literal file bytes makes that guarantee
// obvious from the code rather than incidental.
func checksum(raw []byte) int32 {
	normalized := strings.ReplaceAll(string(raw), "\r\n", "\n")

	return int32(crc32.ChecksumIEEE([]byte(normalized))) //nolint:gosec // intentional truncation to a 32-bit checksum
}
