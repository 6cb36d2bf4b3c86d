// Package validation contains input validation rules for discussion content.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxTitleLen bounds topic titles.
	MaxTitleLen = 300
	// MaxContentLen bounds topic bodies.
	MaxContentLen = 50000
	// MaxMessageLen bounds a single reply.
	MaxMessageLen = 10000
)

var categoryRegex = regexp.MustCompile(`^[a-z0-9-]{2,40}$`)

var reservedCategories = map[string]struct{}{
	"admin":   {},
	"api":     {},
	"ws":      {},
	"metrics": {},
	"health":  {},
}

// ValidateTopicTitle checks title presence and length.
func ValidateTopicTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLen {
		return fmt.Errorf("title too long (max %d characters)", MaxTitleLen)
	}
	return nil
}

// ValidateTopicContent checks body presence and length.
func ValidateTopicContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is required")
	}
	if len(content) > MaxContentLen {
		return fmt.Errorf("content too long (max %d characters)", MaxContentLen)
	}
	return nil
}

// ValidateMessageContent checks reply presence and length.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is required")
	}
	if len(content) > MaxMessageLen {
		return fmt.Errorf("content too long (max %d characters)", MaxMessageLen)
	}
	return nil
}

// ValidateCategory validates category format and reserved names.
func ValidateCategory(category string) error {
	if !categoryRegex.MatchString(category) {
		return fmt.Errorf("category must be 2-40 characters and contain only lowercase letters, numbers, and hyphens")
	}

	if strings.HasPrefix(category, "-") || strings.HasSuffix(category, "-") {
		return fmt.Errorf("category cannot start or end with a hyphen")
	}

	if _, exists := reservedCategories[category]; exists {
		return fmt.Errorf("category is reserved")
	}

	return nil
}
