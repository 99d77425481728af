package domain

import (
	"errors"
	"strconv"
	"strings"
)

// PropertyStatus is the closed set of listing states a property can be
// filtered by.
type PropertyStatus int

const (
	StatusPreSale PropertyStatus = 3
	StatusOnSale  PropertyStatus = 4
	StatusSold    PropertyStatus = 5
)

// ErrInvalidStatus is returned for integers outside the closed set.
var ErrInvalidStatus = errors.New("invalid property status")

// AllStatuses returns every valid status, in code order.
func AllStatuses() []PropertyStatus {
	return []PropertyStatus{StatusPreSale, StatusOnSale, StatusSold}
}

// Valid reports whether s is one of the known statuses.
func (s PropertyStatus) Valid() bool {
	switch s {
	case StatusPreSale, StatusOnSale, StatusSold:
		return true
	}
	return false
}

func (s PropertyStatus) String() string {
	switch s {
	case StatusPreSale:
		return "pre_sale"
	case StatusOnSale:
		return "on_sale"
	case StatusSold:
		return "sold"
	}
	return "unknown(" + strconv.Itoa(int(s)) + ")"
}

// ParsePropertyStatus parses a status code such as "4".
func ParsePropertyStatus(raw string) (PropertyStatus, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	s := PropertyStatus(n)
	if !s.Valid() {
		return 0, ErrInvalidStatus
	}
	return s, nil
}

// StatusCodes converts statuses to plain ints for use as query arguments.
func StatusCodes(statuses []PropertyStatus) []int {
	out := make([]int, len(statuses))
	for i, s := range statuses {
		out[i] = int(s)
	}
	return out
}
