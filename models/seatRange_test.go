package models

import (
	"reflect"
	"testing"
)

func TestParseSeatRange(t *testing.T) {
	cases := []struct {
		in       string
		expected []int
	}{
		{"1-3,5,7-9", []int{1, 2, 3, 5, 7, 8, 9}},
		{"12", []int{12}},
		{"4-4", []int{4}},
		{"3,1,2", []int{1, 2, 3}},
		{"1-3,2-4", []int{1, 2, 3, 4}},
		{" 5 , 7 - 8 ", []int{5, 7, 8}},
		{"", nil},
		{"abc", nil},
		{"5-3", nil},
	}
	for _, tc := range cases {
		got := ParseSeatRange(tc.in)
		if len(got) == 0 && len(tc.expected) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.expected) {
			t.Fatalf("ParseSeatRange(%q) expected %v, got %v", tc.in, tc.expected, got)
		}
	}
}

func TestGenerateSeatNumbers(t *testing.T) {
	got := GenerateSeatNumbers(3, 3)
	if !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("GenerateSeatNumbers(3,3) expected [3], got %v", got)
	}
	got = GenerateSeatNumbers(10, 12)
	if !reflect.DeepEqual(got, []int{10, 11, 12}) {
		t.Fatalf("GenerateSeatNumbers(10,12) expected [10 11 12], got %v", got)
	}
	if got := GenerateSeatNumbers(5, 3); len(got) != 0 {
		t.Fatalf("GenerateSeatNumbers(5,3) expected empty, got %v", got)
	}
}

func TestSeatsContain(t *testing.T) {
	outer := []int{1, 2, 3, 4, 5, 6}
	if !SeatsContain(outer, []int{2, 3}) {
		t.Fatal("expected [1..6] to contain [2 3]")
	}
	if !SeatsContain(outer, []int{1, 6}) {
		t.Fatal("expected bounds to be inclusive")
	}
	if SeatsContain(outer, []int{6, 7}) {
		t.Fatal("expected [1..6] to not contain seat 7")
	}
	if SeatsContain(nil, []int{1}) {
		t.Fatal("expected empty outer to contain nothing")
	}
	if SeatsContain(outer, nil) {
		t.Fatal("expected empty inner to not match")
	}
}
