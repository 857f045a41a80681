package resolver

import (
	"strconv"
	"strings"
)

// ResolveTopic picks one topic folder from topics. The selector is either a
// 1-based index into topics, an exact folder name, or a case-insensitive
// substring that matches exactly one folder.
func ResolveTopic(topics []string, selector string) (string, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return "", &NotFoundError{ShortID: selector, Kind: "topics"}
	}

	if n, err := strconv.Atoi(selector); err == nil {
		if n >= 1 && n <= len(topics) {
			return topics[n-1], nil
		}
		// Fall through: a folder may be named with digits.
	}

	for _, t := range topics {
		if t == selector {
			return t, nil
		}
	}

	needle := strings.ToLower(selector)
	var matches []string
	for _, t := range topics {
		if strings.Contains(strings.ToLower(t), needle) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: selector, Kind: "topics"}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: selector, Kind: "topics", Matches: matches}
	}
}

// SelectTopics applies the topic flags of a run: every topic when all is
// set, the resolved selector when given, otherwise the first topic.
func SelectTopics(topics []string, selector string, all bool) ([]string, error) {
	if len(topics) == 0 {
		return nil, &NotFoundError{ShortID: selector, Kind: "topics"}
	}
	if all {
		return append([]string(nil), topics...), nil
	}
	if selector == "" {
		return topics[:1], nil
	}
	t, err := ResolveTopic(topics, selector)
	if err != nil {
		return nil, err
	}
	return []string{t}, nil
}
