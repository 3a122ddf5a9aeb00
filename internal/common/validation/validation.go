package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	MaxCampaignIDLength = 64
	MaxModuleIDLength   = 64
	MaxBadgeIDLength    = 64
	MaxSlideIndex       = 1000
	MaxNoteLength       = 500

	// MaxAbsAmount bounds a single award so that a typo in an admin
	// adjustment cannot wreck the rankings.
	MaxAbsAmount = 1_000_000

	DateLayout = "2006-01-02"
)

var (
	campaignIDRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
	moduleIDRegex   = regexp.MustCompile(`^[A-Za-z0-9_\-.]+$`)
)

// ValidateUserID checks a Telegram user id.
func ValidateUserID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("user id must be positive")
	}
	return nil
}

// ValidateAmount checks a point amount. Zero is never a meaningful award.
func ValidateAmount(amount int64) error {
	if amount == 0 {
		return fmt.Errorf("amount cannot be zero")
	}
	if amount > MaxAbsAmount || amount < -MaxAbsAmount {
		return fmt.Errorf("amount cannot exceed %d in absolute value", MaxAbsAmount)
	}
	return nil
}

// NormalizeCampaignID trims and validates a campaign identifier.
func NormalizeCampaignID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("campaign id cannot be empty")
	}
	if len(id) > MaxCampaignIDLength {
		return "", fmt.Errorf("campaign id cannot exceed %d characters", MaxCampaignIDLength)
	}
	if !campaignIDRegex.MatchString(id) {
		return "", fmt.Errorf("campaign id must contain only letters, numbers, '-' and '_'")
	}
	return id, nil
}

func ValidateModuleID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("module id cannot be empty")
	}
	if len(id) > MaxModuleIDLength {
		return fmt.Errorf("module id cannot exceed %d characters", MaxModuleIDLength)
	}
	if !moduleIDRegex.MatchString(id) {
		return fmt.Errorf("module id contains invalid characters")
	}
	return nil
}

func ValidateBadgeID(id string) error {
	if len(id) > MaxBadgeIDLength {
		return fmt.Errorf("badge id cannot exceed %d characters", MaxBadgeIDLength)
	}
	return nil
}

func ValidateSlideIndex(i int) error {
	if i < 0 || i > MaxSlideIndex {
		return fmt.Errorf("slide index must be between 0 and %d", MaxSlideIndex)
	}
	return nil
}

func ValidateNote(note string) error {
	if len(note) > MaxNoteLength {
		return fmt.Errorf("note cannot exceed %d characters", MaxNoteLength)
	}
	return nil
}

// ParseDateRange parses optional from/to dates in YYYY-MM-DD. Both must be
// present for the range to apply; to is inclusive of the whole day.
func ParseDateRange(from, to string, loc *time.Location) (*time.Time, *time.Time, error) {
	if from == "" || to == "" {
		return nil, nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(DateLayout, from, loc)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid from date: %w", err)
	}
	end, err := time.ParseInLocation(DateLayout, to, loc)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid to date: %w", err)
	}
	if end.Before(start) {
		return nil, nil, fmt.Errorf("to date is before from date")
	}
	end = end.Add(24*time.Hour - time.Nanosecond)
	return &start, &end, nil
}
