package sdk

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMetadataValidate(t *testing.T) {
	full := Metadata{}
	for i := 0; i < metadataMaxEntries; i++ {
		full[fmt.Sprintf("k%d", i)] = "v"
	}
	if err := full.Validate(); err != nil {
		t.Fatalf("16 entries must be accepted: %v", err)
	}

	over := full.Clone()
	over["one_more"] = "v"

	cases := []struct {
		name string
		md   Metadata
		want MetadataErrorType
	}{
		{"too many entries", over, MetadataErrorTooManyEntries},
		{"empty key", Metadata{"": "v"}, MetadataErrorEmptyKey},
		{"key too long", Metadata{strings.Repeat("k", 65): "v"}, MetadataErrorKeyTooLong},
		{"value too long", Metadata{"k": strings.Repeat("v", 513)}, MetadataErrorValueTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var mdErr MetadataError
			if err := tc.md.Validate(); !errors.As(err, &mdErr) || mdErr.Type != tc.want {
				t.Fatalf("expected %s, got %v", tc.want, err)
			}
		})
	}
}

func TestMetadataLengthsCountCharacters(t *testing.T) {
	// 64 three-byte runes is 192 bytes but still within the key limit.
	md := Metadata{strings.Repeat("界", 64): strings.Repeat("é", 512)}
	if err := md.Validate(); err != nil {
		t.Fatalf("limits are in characters, not bytes: %v", err)
	}
	if err := (Metadata(nil)).Validate(); err != nil {
		t.Fatalf("nil metadata is valid: %v", err)
	}
}

func TestMetadataClone(t *testing.T) {
	if Metadata(nil).Clone() != nil {
		t.Fatal("nil must clone to nil")
	}
	orig := Metadata{"a": "1"}
	cp := orig.Clone()
	cp["a"] = "2"
	if orig["a"] != "1" {
		t.Fatal("clone must not alias the original")
	}
}

func TestRequestsRejectInvalidMetadataBeforeSending(t *testing.T) {
	mock := NewMockTransport()
	client := newMockTestClient(t, mock)
	bad := Metadata{"": "x"}

	var mdErr MetadataError
	if _, err := client.Threads.Create(t.Context(), ThreadCreateRequest{Metadata: bad}); !errors.As(err, &mdErr) {
		t.Fatalf("thread create: expected MetadataError, got %v", err)
	}
	if _, err := client.Runs.Create(t.Context(), "thread_1", RunCreateRequest{AssistantID: "asst_1", Metadata: bad}); !errors.As(err, &mdErr) {
		t.Fatalf("run create: expected MetadataError, got %v", err)
	}
	if _, err := client.Runs.Modify(t.Context(), "thread_1", "run_1", RunModifyRequest{Metadata: bad}); !errors.As(err, &mdErr) {
		t.Fatalf("run modify: expected MetadataError, got %v", err)
	}
	if len(mock.Requests()) != 0 {
		t.Fatal("invalid metadata must not reach the transport")
	}
}
