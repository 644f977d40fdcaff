package validation

import (
	"os"
	"strconv"
	"strings"
)

func MaxMessageLength() int {
	maxStr := os.Getenv("MAX_MESSAGE_LENGTH")
	if maxStr == "" {
		return 4000
	}
	max, err := strconv.Atoi(maxStr)
	if err != nil || max < 1 {
		return 4000
	}
	return max
}

func ValidateMessageContent(content string) bool {
	content = strings.TrimSpace(content)
	return content != "" && len(content) <= MaxMessageLength()
}

var templateTypes = map[string]bool{
	"immediate": true,
	"scheduled": true,
	"recurring": true,
	"reminder":  true,
}

func ValidateTemplateType(t string) bool {
	return templateTypes[t]
}

var recurringIntervals = map[string]bool{
	"daily":   true,
	"weekly":  true,
	"monthly": true,
	"days":    true,
	"hours":   true,
	"minutes": true,
}

func ValidateRecurringInterval(interval string) bool {
	return recurringIntervals[interval]
}

// Known polymorphic subject kinds a notification or template may reference.
var notifiableKinds = map[string]bool{
	"Channel":     true,
	"PrivateChat": true,
	"Team":        true,
	"Project":     true,
	"Meeting":     true,
	"Approval":    true,
	"Task":        true,
	"License":     true,
	"Contract":    true,
}

func ValidateNotifiableKind(kind string) bool {
	return notifiableKinds[kind]
}
