package schedule

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ProcessTemplate replaces {{key}} with the config value for key. Placeholders without a
// value are left as they are.
func ProcessTemplate(instruction string, cfg Config) string {
	return placeholderPattern.ReplaceAllStringFunc(instruction, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		if v, ok := cfg.Lookup(key); ok {
			return v
		}
		return match
	})
}
