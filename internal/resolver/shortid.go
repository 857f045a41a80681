package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/quill/pkg/blackboard"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// RunIndex is the part of the blackboard client the resolver needs.
type RunIndex interface {
	RunExists(ctx context.Context, runID string) (bool, error)
	ScanRunIDs(ctx context.Context, prefix string) ([]string, error)
}

var _ RunIndex = (*blackboard.Client)(nil)

// ResolveRunID resolves a short ID prefix to a full run UUID.
//
// A full UUID (36 chars, 4 hyphens) is only checked for existence. Anything
// shorter must be at least MinShortIDLength characters and match exactly one
// indexed run.
func ResolveRunID(ctx context.Context, index RunIndex, shortID string) (string, error) {
	if len(shortID) == 36 && strings.Count(shortID, "-") == 4 {
		exists, err := index.RunExists(ctx, shortID)
		if err != nil {
			return "", fmt.Errorf("failed to verify run existence: %w", err)
		}
		if !exists {
			return "", &NotFoundError{ShortID: shortID, Kind: "runs"}
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	matches, err := index.ScanRunIDs(ctx, shortID)
	if err != nil {
		return "", fmt.Errorf("failed to search for run: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID, Kind: "runs"}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Kind: "runs", Matches: matches}
	}
}

// NotFoundError indicates nothing matched the selector.
type NotFoundError struct {
	ShortID string
	Kind    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s found matching '%s'", e.Kind, e.ShortID)
}

// AmbiguousError indicates several candidates matched the selector.
type AmbiguousError struct {
	ShortID string
	Kind    string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous selector '%s' matches %d %s", e.ShortID, len(e.Matches), e.Kind)
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous
// selectors. Lists all matches (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: ambiguous selector '%s' matches %d %s:\n", err.ShortID, len(err.Matches), err.Kind)

	displayCount := len(err.Matches)
	if displayCount > 10 {
		displayCount = 10
	}
	for i := 0; i < displayCount; i++ {
		fmt.Fprintf(&b, "  %s\n", err.Matches[i])
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}

	b.WriteString("\nUse a longer selector to pick exactly one.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var target *AmbiguousError
	return errors.As(err, &target)
}
