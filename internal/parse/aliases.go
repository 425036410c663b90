package parse

import "strings"

// cardMemberAliases maps the card-member names printed by the credit-b
// export onto the short spender identities the rest of the system uses.
// Rule data only; unmapped names pass through unchanged.
var cardMemberAliases = map[string]string{
	"JORDAN LEE":   "jordan",
	"JORDAN A LEE": "jordan",
	"DENIS VOLKOV": "denis",
	"D VOLKOV":     "denis",
	"ANA VOLKOVA":  "ana",
}

// ResolveCardMember maps a card-member cell to a spender identity,
// passing the trimmed original through when no alias matches.
func ResolveCardMember(cardMember string) string {
	name := strings.TrimSpace(cardMember)
	if alias, ok := cardMemberAliases[strings.ToUpper(name)]; ok {
		return alias
	}
	return name
}

// SpenderFromFilename derives a spender identity from an upload filename:
// the lowercased token before the first underscore, e.g.
// "jordan_march.csv" -> "jordan". Filenames without an underscore yield
// no spender.
func SpenderFromFilename(name string) string {
	base, _, ok := strings.Cut(name, "_")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(base))
}
