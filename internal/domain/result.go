package domain

import (
	"errors"
	"strings"
)

// Sentinel errors shared across adapters and use cases.
var (
	ErrMissingConfig  = errors.New("missing required configuration")
	ErrLoginFailed    = errors.New("portal login failed")
	ErrInvalidAddress = errors.New("invalid email address")
	ErrNoDateToken    = errors.New("no date token in document title")
)

// Client is a person listed on the portal.
type Client struct {
	ID    string
	First string
	Last  string
}

// FullName is the ledger identity of the client.
func (c Client) FullName() string {
	return strings.TrimSpace(c.First + " " + c.Last)
}

// DocumentRef points at a downloadable result on the portal.
type DocumentRef struct {
	URL   string
	Title string
}

// Result is a newly persisted lab result.
type Result struct {
	Path           string
	ClientName     string
	CollectionDate string
	DownloadDate   string
}

// Key identifies a result inside a ResultSet.
func (r Result) Key() string {
	return r.ClientName + "|" + r.CollectionDate
}

// ResultSet keeps results in insertion order, unique by client name and collection date.
type ResultSet struct {
	items []Result
	index map[string]int
}

// NewResultSet builds an empty set.
func NewResultSet() *ResultSet {
	return &ResultSet{index: map[string]int{}}
}

// Add inserts r unless a result with the same key is present. Reports whether r was added.
func (s *ResultSet) Add(r Result) bool {
	if s.index == nil {
		s.index = map[string]int{}
	}
	if _, ok := s.index[r.Key()]; ok {
		return false
	}
	s.index[r.Key()] = len(s.items)
	s.items = append(s.items, r)
	return true
}

// Len returns the number of results.
func (s *ResultSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns a copy of the results in insertion order.
func (s *ResultSet) Items() []Result {
	if s == nil {
		return nil
	}
	out := make([]Result, len(s.items))
	copy(out, s.items)
	return out
}

// LedgerEntry is one processed (identity, raw date token) pair.
type LedgerEntry struct {
	Identity string
	Token    string
}

// LoginResult reports whether the portal accepted the credentials.
type LoginResult struct {
	OK     bool
	Reason string
}
