package sdk

import (
	"fmt"
	"unicode/utf8"
)

const (
	metadataMaxEntries     = 16
	metadataMaxKeyLength   = 64
	metadataMaxValueLength = 512
)

// Metadata is the free-form string map attached to threads, messages and runs.
// Key order is not significant.
type Metadata map[string]string

type MetadataErrorType string

const (
	MetadataErrorTooManyEntries MetadataErrorType = "too_many_entries"
	MetadataErrorEmptyKey       MetadataErrorType = "empty_key"
	MetadataErrorKeyTooLong     MetadataErrorType = "key_too_long"
	MetadataErrorValueTooLong   MetadataErrorType = "value_too_long"
)

// MetadataError reports metadata that the provider would reject.
type MetadataError struct {
	Type   MetadataErrorType
	Key    string
	Detail string
}

func (e MetadataError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("metadata %s: %s", e.Type, e.Detail)
	}
	return fmt.Sprintf("metadata %s (%q): %s", e.Type, e.Key, e.Detail)
}

// Validate enforces the entry count and key/value length limits. Lengths are
// counted in characters. Nothing is truncated: an oversize map is an error.
func (m Metadata) Validate() error {
	if len(m) > metadataMaxEntries {
		return MetadataError{
			Type:   MetadataErrorTooManyEntries,
			Detail: fmt.Sprintf("%d entries exceeds max of %d", len(m), metadataMaxEntries),
		}
	}
	for k, v := range m {
		if k == "" {
			return MetadataError{Type: MetadataErrorEmptyKey, Detail: "keys must be non-empty"}
		}
		if n := utf8.RuneCountInString(k); n > metadataMaxKeyLength {
			return MetadataError{
				Type:   MetadataErrorKeyTooLong,
				Key:    k,
				Detail: fmt.Sprintf("key length %d exceeds max of %d", n, metadataMaxKeyLength),
			}
		}
		if n := utf8.RuneCountInString(v); n > metadataMaxValueLength {
			return MetadataError{
				Type:   MetadataErrorValueTooLong,
				Key:    k,
				Detail: fmt.Sprintf("value length %d exceeds max of %d", n, metadataMaxValueLength),
			}
		}
	}
	return nil
}

// Clone returns an independent copy (nil stays nil).
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
