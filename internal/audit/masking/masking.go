package masking

import "strings"

const maskToken = "****"

// MaskSecret keeps the public prefix of a kg_<prefix>_<secret> key (or the
// last four characters of anything else) and hides the rest.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if parts := strings.SplitN(trimmed, "_", 3); len(parts) == 3 && parts[0] == "kg" {
		return "kg_" + parts[1] + "_" + maskToken
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 {
		return MaskSecret(trimmed)
	}
	return trimmed[:1] + maskToken + trimmed[at:]
}
