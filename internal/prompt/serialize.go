package prompt

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	flagStyleReference = "sref"
	flagAspectRatio    = "ar"
	flagStyleStrength  = "s"
)

var flagPattern = regexp.MustCompile(`\s*--(\w+)\s+(\S+)`)

// Flags renders the parameters in the service's flag syntax.
func Flags(p Parameters) []string {
	return []string{
		"--" + flagStyleReference + " " + p.StyleReference.String(),
		"--" + flagAspectRatio + " " + p.AspectRatio,
		"--" + flagStyleStrength + " " + strconv.Itoa(p.StyleStrength),
	}
}

// Strip removes every `--key value` token from input.
func Strip(input string) string {
	return strings.TrimSpace(flagPattern.ReplaceAllString(input, ""))
}

// Build returns the prompt text sent to the service: the base text with any
// previously appended flags removed, followed by the flags for p.
func Build(input string, p Parameters) string {
	base := Strip(input)
	flags := strings.Join(Flags(p), " ")
	if base == "" {
		return flags
	}
	return base + " " + flags
}

// Parse splits a serialized prompt into its base text and the parameters it
// carries. Missing or unreadable flags keep their default values.
func Parse(serialized string) (string, Parameters) {
	params := Defaults()
	for _, match := range flagPattern.FindAllStringSubmatch(serialized, -1) {
		key, value := match[1], match[2]
		switch key {
		case flagStyleReference:
			if ref, err := ParseStyleReference(value); err == nil {
				params.StyleReference = ref
			}
		case flagAspectRatio:
			params.AspectRatio = value
		case flagStyleStrength:
			if n, err := strconv.Atoi(value); err == nil {
				params.StyleStrength = n
			}
		}
	}
	return Strip(serialized), params.Normalize()
}
