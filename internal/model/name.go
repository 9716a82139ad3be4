package model

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformedOption indicates a query segment that is not a key=value pair.
var ErrMalformedOption = errors.New("malformed model option")

// ParseName splits a raw identifier of the form name[?key=value[&key=value...]]
// into the canonical name and its typed default options. The name is kept
// verbatim; only the first '?' separates it from the options.
func ParseName(raw string) (string, Options, error) {
	name, query, _ := strings.Cut(raw, "?")
	options, err := ParseQuery(query)
	if err != nil {
		return "", nil, fmt.Errorf("parse model name %q: %w", raw, err)
	}
	return name, options, nil
}

// ParseQuery parses '&'-separated key=value pairs, coercing each value to an
// int, then a float64, then falling back to the string. An empty query yields
// empty options. Later duplicates overwrite earlier ones.
func ParseQuery(query string) (Options, error) {
	options := Options{}
	if query == "" {
		return options, nil
	}

	for _, segment := range strings.Split(query, "&") {
		rawKey, rawValue, ok := strings.Cut(segment, "=")
		if !ok || rawKey == "" {
			return nil, fmt.Errorf("%w: segment %q", ErrMalformedOption, segment)
		}

		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrMalformedOption, rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrMalformedOption, key, err)
		}

		options[key] = coerce(value)
	}
	return options, nil
}

// ParseOption parses a single key=value pair, splitting on the first '='.
// The value is taken literally, so '&' and '%' survive, and is coerced like
// name options.
func ParseOption(pair string) (string, any, error) {
	key, value, ok := strings.Cut(pair, "=")
	if !ok || key == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedOption, pair)
	}
	return key, coerce(value), nil
}

func coerce(value string) any {
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return value
}

// Classify applies the naming heuristic: any name containing "embed" in any
// letter case is an embeddings model, everything else generates completions.
func Classify(name string) Role {
	if strings.Contains(strings.ToLower(name), "embed") {
		return RoleEmbeddings
	}
	return RoleCompletions
}
