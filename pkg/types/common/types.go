// Package common holds small shared value types used across layers.
package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ID is a string entity identifier.  IDs carry a short type prefix
// ("CPY-", "SNP-", "ALT-", ...) so log lines and event payloads stay
// self-describing.
type ID string

func (id ID) String() string { return string(id) }

// IsZero reports whether the ID is empty.
func (id ID) IsZero() bool { return id == "" }

// NewID generates a prefixed identifier.  An empty prefix yields a bare UUID.
func NewID(prefix string) ID {
	u := uuid.NewString()
	if prefix == "" {
		return ID(u)
	}
	return ID(fmt.Sprintf("%s-%s", strings.TrimSuffix(prefix, "-"), u))
}

// PaginationResult describes one page of a listed collection.
type PaginationResult struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the derived TotalPages field.
func NewPagination(page, pageSize, total int) *PaginationResult {
	if pageSize <= 0 {
		pageSize = 1
	}
	return &PaginationResult{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
}

// Clock abstracts the time source so scheduling logic stays testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock returns a Clock pinned to t.  Intended for tests.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
