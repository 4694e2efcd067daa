package parser

import (
	"errors"
	"fmt"
	"strings"
)

var errMappingIncomplete = errors.New("header row is missing required columns")

// BankFormat maps one bank's statement layout onto a ColumnMapping.
type BankFormat interface {
	// Name is the registry key, e.g. "firstbank".
	Name() string
	// Detect reports whether a header row looks like this bank's export.
	Detect(headers []string) bool
	// Mapping resolves column indexes from the header row.
	Mapping(headers []string) (ColumnMapping, error)
}

var formats = []BankFormat{
	&firstBankFormat{},
	&genericFormat{},
}

// FormatByName looks up a registered bank format.
func FormatByName(name string) (BankFormat, error) {
	for _, f := range formats {
		if f.Name() == strings.ToLower(strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("unknown bank format %q", name)
}

// detectFormat returns the first registered format whose Detect accepts the
// header row. The generic format is last and accepts any plausible header.
func detectFormat(headers []string) (BankFormat, error) {
	for _, f := range formats {
		if f.Detect(headers) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("no bank format recognizes the header row")
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Trim(h, ".:")
	return strings.Join(strings.Fields(h), " ")
}

// headerIndex finds the first header equal to, or containing, any of the
// given keywords. Returns -1 when nothing matches.
func headerIndex(headers []string, keywords ...string) int {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}
	for _, kw := range keywords {
		for i, h := range normalized {
			if h == kw {
				return i
			}
		}
	}
	for _, kw := range keywords {
		for i, h := range normalized {
			if strings.Contains(h, kw) {
				return i
			}
		}
	}
	return -1
}
