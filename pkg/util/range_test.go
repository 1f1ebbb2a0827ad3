package util

import (
	"reflect"
	"testing"
)

func TestExpandRange(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []int
		wantErr bool
	}{
		{name: "single value", spec: "5", want: []int{5}},
		{name: "simple range", spec: "1-5", want: []int{1, 2, 3, 4, 5}},
		{name: "comma separated", spec: "1,3,5", want: []int{1, 3, 5}},
		{name: "mixed", spec: "1-3,5,7-9", want: []int{1, 2, 3, 5, 7, 8, 9}},
		{name: "duplicates removed", spec: "1-3,2-4", want: []int{1, 2, 3, 4}},
		{name: "empty string", spec: "", want: nil},
		{name: "reversed range", spec: "5-1", wantErr: true},
		{name: "garbage", spec: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandRange(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpandRange(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandRange(%q) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestCompactRange(t *testing.T) {
	tests := []struct {
		in   []int
		want string
	}{
		{nil, ""},
		{[]int{1}, "1"},
		{[]int{1, 2, 3, 5, 7, 8, 9}, "1-3,5,7-9"},
		{[]int{9, 8, 7, 7}, "7-9"},
	}
	for _, tt := range tests {
		if got := CompactRange(tt.in); got != tt.want {
			t.Errorf("CompactRange(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseVLANList(t *testing.T) {
	tests := []struct {
		name    string
		words   []string
		want    []int
		wantErr bool
	}{
		{name: "vrp batch", words: []string{"10", "20", "to", "22"}, want: []int{10, 20, 21, 22}},
		{name: "ios list", words: []string{"10,20-22"}, want: []int{10, 20, 21, 22}},
		{name: "single", words: []string{"100"}, want: []int{100}},
		{name: "out of range", words: []string{"4095"}, wantErr: true},
		{name: "dangling to", words: []string{"10", "to"}, wantErr: true},
		{name: "leading to", words: []string{"to", "10"}, wantErr: true},
		{name: "empty", words: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVLANList(tt.words)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVLANList(%v) error = %v, wantErr %v", tt.words, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseVLANList(%v) = %v, want %v", tt.words, got, tt.want)
			}
		})
	}
}
