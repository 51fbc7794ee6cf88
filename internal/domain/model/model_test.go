package model

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

// ---- Money tests ----

func TestMoney_String(t *testing.T) {
	tests := []struct {
		in   Money
		want string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{123456, "$1234.56"},
		{-250, "-$2.50"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Money(%d).String() = %q, want %q", int64(tt.in), got, tt.want)
		}
	}
}

func TestMoneyFromFloat(t *testing.T) {
	if got := MoneyFromFloat(12.346); got != 1235 {
		t.Errorf("expected 1235 cents, got %d", got)
	}
	if got := MoneyFromFloat(0.1 + 0.2); got != 30 {
		t.Errorf("expected 30 cents, got %d", got)
	}
}

// ---- Record tests ----

func TestCustomerSnapshot_Validate(t *testing.T) {
	ok := CustomerSnapshot{CustomerID: "C1", OrdersPlaced: 0, TasksOutstanding: 0}
	if err := ok.Validate(); err != nil {
		t.Errorf("expected valid snapshot, got %v", err)
	}

	bad := ok
	bad.OrdersPlaced = -1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative orders placed")
	}

	bad = ok
	bad.CustomerID = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for empty customer id")
	}
}

func TestPageOf(t *testing.T) {
	items := []int{0, 1, 2, 3, 4}

	got := PageOf(items, Slice{Offset: 3, Limit: 5})
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("unexpected clamped page: %v", got)
	}
	if got := PageOf(items, Slice{Offset: 5, Limit: 2}); got != nil {
		t.Errorf("expected nil page past the end, got %v", got)
	}

	page := PageOf(items, Slice{Offset: 0, Limit: 2})
	page[0] = 99
	if items[0] != 0 {
		t.Error("PageOf must not alias the source slice")
	}
}

// ---- Summary tests ----

func TestNewSummary_Bounds(t *testing.T) {
	s := NewSummary("  "+strings.Repeat("é", 20)+"  ", 10)
	if n := utf8.RuneCountInString(s.Text); n != 10 {
		t.Errorf("expected 10 runes, got %d (%q)", n, s.Text)
	}
	if !strings.HasSuffix(s.Text, "…") {
		t.Errorf("expected ellipsis suffix, got %q", s.Text)
	}
	if s.Fallback {
		t.Error("expected non-fallback summary")
	}

	unbounded := NewSummary("short text", 0)
	if unbounded.Text != "short text" {
		t.Errorf("expected text untouched, got %q", unbounded.Text)
	}
}

func TestSummary_Valid(t *testing.T) {
	if NewSummary("   ", 10).Valid() {
		t.Error("blank summary must not be valid")
	}
	fb := FallbackSummary()
	if !fb.Valid() || !fb.Fallback || fb.Text != FallbackSummaryText {
		t.Errorf("unexpected fallback summary: %+v", fb)
	}
}

// ---- Ref tests ----

func TestMessageRef_Key(t *testing.T) {
	a := MessageRef{Channel: "C1", Timestamp: "1.1"}
	b := MessageRef{Channel: "C1", Timestamp: "1.2"}
	if a.Key() == b.Key() {
		t.Error("distinct messages must have distinct keys")
	}
	if !(MessageRef{Channel: "C1"}).IsZero() {
		t.Error("ref without timestamp must be zero")
	}
}

// ---- View tests ----

func TestView_Buttons(t *testing.T) {
	v := View{Blocks: []Block{
		SectionBlock("hi"),
		ActionsBlock(Button{ActionID: "a"}, Button{ActionID: "b"}),
		DividerBlock(),
		ActionsBlock(Button{ActionID: "c"}),
	}}
	if n := len(v.Buttons()); n != 3 {
		t.Errorf("expected 3 buttons, got %d", n)
	}
	if _, ok := v.Button("c"); !ok {
		t.Error("expected to find button c")
	}
	if _, ok := v.Button("z"); ok {
		t.Error("did not expect to find button z")
	}
	if n := v.CountBlocks(BlockTypeActions); n != 2 {
		t.Errorf("expected 2 action blocks, got %d", n)
	}
}

// ---- Cursor tests ----

func TestCursor_VisitsEachSliceOnce(t *testing.T) {
	tests := []struct {
		total, first, step int
		pages              int
	}{
		{total: 5, first: 3, step: 2, pages: 2},
		{total: 3, first: 3, step: 2, pages: 1},
		{total: 2, first: 3, step: 2, pages: 1},
		{total: 10, first: 3, step: 2, pages: 5},
		{total: 7, first: 2, step: 2, pages: 4},
		{total: 0, first: 3, step: 2, pages: 1},
	}

	for _, tt := range tests {
		c := NewCursor("C1", tt.first, tt.step).WithTotal(tt.total)
		seen := make([]int, tt.total)
		pages := 1
		mark := func(s Slice) {
			for i := s.Offset; i < s.End(); i++ {
				seen[i]++
			}
		}
		mark(c.Slice())

		for c.HasNext() {
			next, s, ok := c.Advance()
			if !ok {
				t.Fatalf("Advance returned !ok while HasNext was true")
			}
			mark(s)
			c = next
			pages++
			if pages > tt.total+1 {
				t.Fatalf("cursor did not terminate (total=%d)", tt.total)
			}
		}

		for i, n := range seen {
			if n != 1 {
				t.Errorf("total=%d first=%d step=%d: entry %d visited %d times", tt.total, tt.first, tt.step, i, n)
			}
		}
		if pages != tt.pages {
			t.Errorf("total=%d: expected %d pages, got %d", tt.total, tt.pages, pages)
		}

		same, s, ok := c.Advance()
		if ok || same != c || s != (Slice{}) {
			t.Errorf("advance past the end must be a no-op, got %+v %+v %v", same, s, ok)
		}
	}
}

func TestCursor_NextSize(t *testing.T) {
	c := NewCursor("C1", 3, 2).WithTotal(4)
	if c.NextSize() != 1 {
		t.Errorf("expected next size 1, got %d", c.NextSize())
	}
	c, _, _ = c.Advance()
	if c.NextSize() != 0 {
		t.Errorf("expected next size 0 on last page, got %d", c.NextSize())
	}
}

func TestCursor_EncodeDecode(t *testing.T) {
	c := NewCursor("C42", 3, 2).WithTotal(5)
	decoded, err := DecodeCursor(c.Encode())
	if err != nil {
		t.Fatalf("DecodeCursor error: %v", err)
	}
	if decoded != c {
		t.Errorf("expected %+v, got %+v", c, decoded)
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"%%%not-base64",
		Cursor{Offset: 0, Limit: 3, Step: 2, Total: 5}.Encode(),
		Cursor{CustomerID: "C1", Offset: 4, Limit: 3, Step: 2, Total: 5}.Encode(),
		Cursor{CustomerID: "C1", Limit: 3, Step: 0, Total: 5}.Encode(),
	}
	for _, in := range inputs {
		if _, err := DecodeCursor(in); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("DecodeCursor(%q): expected ErrInvalidCursor, got %v", in, err)
		}
	}
}
