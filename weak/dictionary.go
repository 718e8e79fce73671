package weak

// dictionary is the built-in list of common passwords checked
// case-insensitively (spec.md §4.10c). This is a small curated sample of
// widely-known weak passwords, not an exhaustive corpus; operators who
// need broader coverage should extend it or rely on the pwned-prefix
// check (§4.10d) for depth.
var dictionary = map[string]bool{
	"password":  true,
	"value":     true,
	"letmein":   true,
	"dragon":    true,
	"monkey":    true,
	"football":  true,
	"baseball":  true,
	"iloveyou":  true,
	"trustno1":  true,
	"sunshine":  true,
	"master":    true,
	"welcome":   true,
	"shadow":    true,
	"superman":  true,
	"qazwsx":    true,
	"michael":   true,
	"qwertyuiop": true,
	"passw0rd":  true,
	"p@ssw0rd":  true,
}
