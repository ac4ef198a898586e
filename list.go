package sdk

import (
	"fmt"
	"strconv"
)

const listMaxLimit = 100

// ListOptions are the cursor parameters shared by list endpoints.
type ListOptions struct {
	// Limit is the page size (1..100); zero uses the provider default of 20.
	Limit int
	// Order sorts by creation time; empty uses the provider default (desc).
	Order ListOrder
	// After returns objects after this id (next page when Order is desc).
	After string
	// Before returns objects before this id.
	Before string
}

func (o ListOptions) query() (map[string]string, error) {
	if o.Limit < 0 || o.Limit > listMaxLimit {
		return nil, ConfigError{Reason: fmt.Sprintf("limit must be between 1 and %d", listMaxLimit)}
	}
	if !o.Order.valid() {
		return nil, ConfigError{Reason: fmt.Sprintf("order must be %q or %q", ListOrderAsc, ListOrderDesc)}
	}
	q := map[string]string{}
	if o.Limit > 0 {
		q["limit"] = strconv.Itoa(o.Limit)
	}
	if o.Order != "" {
		q["order"] = string(o.Order)
	}
	if o.After != "" {
		q["after"] = o.After
	}
	if o.Before != "" {
		q["before"] = o.Before
	}
	return q, nil
}

// ListResponse is the envelope returned by list endpoints.
type ListResponse[T any] struct {
	Object  string `json:"object"`
	Data    []T    `json:"data"`
	FirstID string `json:"first_id,omitempty"`
	LastID  string `json:"last_id,omitempty"`
	HasMore bool   `json:"has_more"`
}

// NextPage returns options for the page following this one, or false when
// there is nothing more to fetch.
func (r ListResponse[T]) NextPage(prev ListOptions) (ListOptions, bool) {
	if !r.HasMore || r.LastID == "" {
		return ListOptions{}, false
	}
	next := prev
	next.After = r.LastID
	next.Before = ""
	return next, true
}

// DeletionStatus is returned by delete endpoints.
type DeletionStatus struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}
