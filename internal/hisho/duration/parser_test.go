package duration_test

import (
	"strconv"
	"testing"

	"github.com/bdobrica/Hisho/internal/hisho/duration"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"Выпить воду через 45 минут", 45},
		{"позвонить маме через 2 часа", 120},
		{"Сходить в магазин через 3 дня", 3 * 1440},
		{"Встреча через 1 день 5 часов", 1440 + 300},
		{"через 10 мин", 10},
		{"через 10 м", 10},
		{"через 7 ч", 420},
		{"через 2 дней", 2880},
		{"remind me to drink water in 45 minutes", 45},
		{"stand up in 2 hours", 120},
		{"trip in 3 days", 4320},
		{"call mom", 0},
		{"", 0},
		{"in 45", 0},
		{"45 apples", 0},
		{"-5 минут", 0},
		{"5 5 минут", 5},
		{"ЧЕРЕЗ 2 ЧАСА", 120},
		{"1 час 30 минут", 90},
		{"buy 2 dozen eggs", 0},
		{"meet 3 mates", 0},
		{"back in 2 h", 120},
		{"wait 15 m", 15},
		{"leave in 1 d", 1440},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := duration.Parse(tt.input); got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParse_UnitPrefixes(t *testing.T) {
	tests := []struct {
		word string
		mult int
	}{
		{"минута", 1},
		{"минуты", 1},
		{"мин.", 1},
		{"месяц", 1},
		{"часов", 60},
		{"ч.", 60},
		{"день", 1440},
		{"дня", 1440},
		{"дн.", 1440},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			for _, n := range []int{1, 7, 30} {
				input := strconv.Itoa(n) + " " + tt.word
				if got := duration.Parse(input); got != n*tt.mult {
					t.Errorf("Parse(%q) = %d, want %d", input, got, n*tt.mult)
				}
			}
		})
	}
}

func TestParse_LargeValueStaysOutOfRange(t *testing.T) {
	got := duration.Parse("через 31 день")
	if got <= duration.MaxMinutes {
		t.Errorf("expected > %d, got %d", duration.MaxMinutes, got)
	}
	for _, input := range []string{
		"9223372036854775807 дней",
		"99999999999999999999 минут",
		"через 100000000000000000000 часов",
		"999999999999999999999999 минут",
	} {
		if got := duration.Parse(input); got <= duration.MaxMinutes {
			t.Errorf("Parse(%q) = %d, must saturate above the limit", input, got)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{45, "45 мин."},
		{120, "2 ч."},
		{1440 + 300 + 3, "1 дн. 5 ч. 3 мин."},
		{2880, "2 дн."},
		{0, "чуть позже"},
	}
	for _, tt := range tests {
		if got := duration.Format(tt.minutes); got != tt.want {
			t.Errorf("Format(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}
