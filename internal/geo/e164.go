package geo

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const DefaultRegion = "BR"

// NormalizeE164 formata para E.164. Se o número não for válido, devolve a entrada sem espaços nas pontas.
func NormalizeE164(input, defaultRegion string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if defaultRegion == "" {
		defaultRegion = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}
	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
