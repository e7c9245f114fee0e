package crawler

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Limits on a crawl draft.
const (
	MinLimit         = 1
	MaxLimit         = 1000
	DefaultLimit     = 50
	MaxKeywordLength = 100
)

// ErrValidation marks form-level validation failures.
var ErrValidation = errors.New("validation failed")

// FieldError describes one invalid form field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors collects every problem found in a draft.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

// Unwrap lets errors.Is match ErrValidation.
func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}

// Field returns the message for field, if any.
func (v ValidationErrors) Field(field string) (string, bool) {
	for _, fe := range v {
		if fe.Field == field {
			return fe.Message, true
		}
	}
	return "", false
}

// ValidKeyword reports whether kw is non-blank and at most MaxKeywordLength
// characters.
func ValidKeyword(kw string) bool {
	return strings.TrimSpace(kw) != "" && utf8.RuneCountInString(kw) <= MaxKeywordLength
}

// Validate checks a crawl draft before anything is sent to the backend.
func (c Config) Validate() error {
	var errs ValidationErrors
	if len(c.Platforms) == 0 {
		errs = append(errs, FieldError{Field: "platforms", Message: "select at least one platform"})
	}
	for _, p := range c.Platforms {
		if !p.Valid() {
			errs = append(errs, FieldError{Field: "platforms", Message: fmt.Sprintf("unknown platform %q", p)})
		}
	}
	if !ValidKeyword(c.Keywords) {
		errs = append(errs, FieldError{Field: "keywords", Message: "enter a keyword of 1-100 characters"})
	}
	switch {
	case c.CrawlerType == "":
		errs = append(errs, FieldError{Field: "crawlerType", Message: "choose a crawl type"})
	case !c.CrawlerType.Valid():
		errs = append(errs, FieldError{Field: "crawlerType", Message: fmt.Sprintf("unknown crawl type %q", c.CrawlerType)})
	default:
		for _, p := range c.Platforms {
			info, ok := Lookup(p)
			if ok && !info.Supports(c.CrawlerType) {
				errs = append(errs, FieldError{
					Field:   "crawlerType",
					Message: fmt.Sprintf("%s does not support %s crawls", p, c.CrawlerType),
				})
			}
		}
	}
	if c.Limit < MinLimit || c.Limit > MaxLimit {
		errs = append(errs, FieldError{Field: "limit", Message: fmt.Sprintf("limit must be between %d and %d", MinLimit, MaxLimit)})
	}
	if err := c.Filters.validate(); err != nil {
		errs = append(errs, *err)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (f FilterOptions) validate() *FieldError {
	if f.MinLikes != nil && f.MaxLikes != nil && *f.MinLikes > *f.MaxLikes {
		return &FieldError{Field: "filters", Message: "minLikes exceeds maxLikes"}
	}
	if f.MinComments != nil && f.MaxComments != nil && *f.MinComments > *f.MaxComments {
		return &FieldError{Field: "filters", Message: "minComments exceeds maxComments"}
	}
	if f.StartDate == "" && f.EndDate == "" {
		return nil
	}
	if !ValidDateRange(f.StartDate, f.EndDate) {
		return &FieldError{Field: "filters", Message: "date range must be YYYY-MM-DD with start before end"}
	}
	return nil
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

// ValidDateRange accepts open-ended ranges; when both ends are set start must
// not be after end.
func ValidDateRange(start, end string) bool {
	if start != "" && !ValidDate(start) {
		return false
	}
	if end != "" && !ValidDate(end) {
		return false
	}
	if start == "" || end == "" {
		return true
	}
	s, _ := time.Parse(time.DateOnly, start)
	e, _ := time.Parse(time.DateOnly, end)
	return !s.After(e)
}
