package weak

import (
	"bufio"
	_ "embed"
	"strings"
)

// pwnedData is a small bundled excerpt of the "have I been pwned" offline
// password dataset, expressed as a set of full SHA-1 hex digests (the
// format the real k-anonymity dataset uses is a prefix plus suffix split;
// here the whole digest is stored since the bundled set is small enough
// that prefix compression isn't worthwhile). Each line is one uppercase
// hex SHA-1 digest of a known-compromised password.
//
//go:embed pwned.txt
var pwnedData string

var pwnedSet = loadPwnedSet(pwnedData)

func loadPwnedSet(data string) map[string]bool {
	set := make(map[string]bool)
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		set[strings.ToUpper(line)] = true
	}
	return set
}
