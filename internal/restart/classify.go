package restart

import "strings"

// Severity classifies a failed restart command.
type Severity int

const (
	// SeverityFatal means the restart genuinely failed.
	SeverityFatal Severity = iota
	// SeverityBenign means the command reported an error whose signature
	// indicates a daemon/CLI version mismatch; the restart itself almost
	// certainly went through, so the failure is downgraded to a warning.
	SeverityBenign
)

// benignSignatures are substrings of docker daemon/CLI version-mismatch
// errors observed in the field. The list is expected to grow.
var benignSignatures = []string{
	"client version",
	"is too new",
	"maximum supported api version",
	"api version mismatch",
}

// Classify inspects the combined output and error text of a failed restart
// command and decides whether the failure is benign. Pure function; matching
// is case-insensitive substring search.
func Classify(output string) Severity {
	lowered := strings.ToLower(output)
	for _, sig := range benignSignatures {
		if strings.Contains(lowered, sig) {
			return SeverityBenign
		}
	}
	return SeverityFatal
}
