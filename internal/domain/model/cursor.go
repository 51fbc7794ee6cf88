package model

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Cursor tracks which slice of a customer's order history a paged view shows.
// It travels in the value of the "next" button, so it carries everything needed
// to compute the following slice.
type Cursor struct {
	CustomerID string `json:"c"`
	Offset     int    `json:"o"`
	Limit      int    `json:"l"`
	Step       int    `json:"s"`
	// Total is the size of the result set, zero until the first page is loaded.
	Total int `json:"t,omitempty"`
}

// NewCursor returns a cursor on the first page of size first. Later pages
// hold step entries.
func NewCursor(customerID string, first, step int) Cursor {
	return Cursor{CustomerID: customerID, Limit: first, Step: step}
}

func (c Cursor) Slice() Slice { return Slice{Offset: c.Offset, Limit: c.Limit} }

func (c Cursor) WithTotal(total int) Cursor {
	c.Total = total
	if c.Offset+c.Limit > total {
		c.Limit = max(total-c.Offset, 0)
	}
	return c
}

// HasNext reports whether a further slice exists after the current one.
func (c Cursor) HasNext() bool {
	return c.Offset+c.Limit < c.Total
}

// NextSize is the number of entries the next slice would hold.
func (c Cursor) NextSize() int {
	if !c.HasNext() {
		return 0
	}
	return min(c.Step, c.Total-(c.Offset+c.Limit))
}

// Advance moves to the next slice. The boolean is false when the cursor is
// already on the last slice, in which case c is returned unchanged.
func (c Cursor) Advance() (Cursor, Slice, bool) {
	if !c.HasNext() {
		return c, Slice{}, false
	}
	next := c
	next.Offset = c.Offset + c.Limit
	next.Limit = c.NextSize()
	return next, next.Slice(), true
}

func (c Cursor) validate() error {
	switch {
	case c.CustomerID == "":
		return fmt.Errorf("%w: missing customer", ErrInvalidCursor)
	case c.Offset < 0 || c.Limit < 0 || c.Total < 0:
		return fmt.Errorf("%w: negative bounds", ErrInvalidCursor)
	case c.Step <= 0:
		return fmt.Errorf("%w: non-positive step", ErrInvalidCursor)
	case c.Total > 0 && c.Offset+c.Limit > c.Total:
		return fmt.Errorf("%w: slice beyond total", ErrInvalidCursor)
	}
	return nil
}

// Encode renders the cursor as an opaque, URL-safe button value.
func (c Cursor) Encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

func DecodeCursor(s string) (Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if err := c.validate(); err != nil {
		return Cursor{}, err
	}
	return c, nil
}
