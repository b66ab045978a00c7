package models

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysSince(t *testing.T) {
	start := date(2024, time.January, 1)

	cases := []struct {
		name     string
		now      time.Time
		expected int
	}{
		{"same day is day one", date(2024, time.January, 1), 1},
		{"next day is day two", date(2024, time.January, 2), 2},
		{"one week later", date(2024, time.January, 8), 8},
		{"time of day is ignored", time.Date(2024, time.January, 8, 23, 59, 0, 0, time.UTC), 8},
	}
	for _, tc := range cases {
		got := DaysSince(&start, tc.now)
		if got == nil || *got != tc.expected {
			t.Fatalf("%s: DaysSince expected %d, got %v", tc.name, tc.expected, got)
		}
	}
}

func TestDaysSinceNilStart(t *testing.T) {
	if got := DaysSince(nil, date(2024, time.January, 1)); got != nil {
		t.Fatalf("DaysSince(nil) expected nil, got %v", *got)
	}
	var zero time.Time
	if got := DaysSince(&zero, date(2024, time.January, 1)); got != nil {
		t.Fatalf("DaysSince(zero) expected nil, got %v", *got)
	}
}

func TestDaysSinceFutureStart(t *testing.T) {
	start := date(2024, time.June, 10)
	got := DaysSince(&start, date(2024, time.June, 1))
	if got == nil || *got != 0 {
		t.Fatalf("future start expected 0, got %v", got)
	}
}

func TestDaysBetween(t *testing.T) {
	a := date(2024, time.March, 1)
	b := date(2024, time.March, 11)
	if got := DaysBetween(a, b); got != 10 {
		t.Fatalf("DaysBetween expected 10, got %d", got)
	}
	// order must not matter
	if got := DaysBetween(b, a); got != 10 {
		t.Fatalf("DaysBetween reversed expected 10, got %d", got)
	}
	// partial days round up
	if got := DaysBetween(a, a.Add(36*time.Hour)); got != 2 {
		t.Fatalf("DaysBetween partial expected 2, got %d", got)
	}
}

func TestVegetativeWeeks(t *testing.T) {
	start := date(2024, time.January, 1)

	cases := []struct {
		name     string
		now      time.Time
		expected int
	}{
		{"day one yields one week", date(2024, time.January, 1), 1},
		{"day seven still one week", date(2024, time.January, 7), 1},
		{"day eight rolls to two weeks", date(2024, time.January, 8), 2},
		{"day fifteen rolls to three", date(2024, time.January, 15), 3},
	}
	for _, tc := range cases {
		weeks := VegetativeWeeks(&start, tc.now)
		if len(weeks) != tc.expected {
			t.Fatalf("%s: expected %d weeks, got %d", tc.name, tc.expected, len(weeks))
		}
		for i, week := range weeks {
			if week.WeekNumber != i+1 {
				t.Fatalf("%s: week %d has number %d", tc.name, i, week.WeekNumber)
			}
			if week.PhaseName != WeekPhaseVegetative {
				t.Fatalf("%s: week %d has phase %q", tc.name, i, week.PhaseName)
			}
		}
	}
}

func TestVegetativeWeeksNoStart(t *testing.T) {
	if weeks := VegetativeWeeks(nil, date(2024, time.January, 1)); len(weeks) != 0 {
		t.Fatalf("nil start expected empty schedule, got %d weeks", len(weeks))
	}
	future := date(2024, time.June, 1)
	if weeks := VegetativeWeeks(&future, date(2024, time.January, 1)); len(weeks) != 0 {
		t.Fatalf("future start expected empty schedule, got %d weeks", len(weeks))
	}
}

func TestVegetativeWeeksDeterministic(t *testing.T) {
	start := date(2024, time.February, 1)
	now := date(2024, time.March, 20)
	first := VegetativeWeeks(&start, now)
	second := VegetativeWeeks(&start, now)
	if !first.Equal(second) {
		t.Fatal("re-derivation from the same inputs must be identical")
	}
}

func TestStandardFloweringWeeks(t *testing.T) {
	weeks := StandardFloweringWeeks()
	if len(weeks) != 9 {
		t.Fatalf("expected 9 flowering weeks, got %d", len(weeks))
	}

	expected := []string{
		WeekPhasePreFlower, WeekPhasePreFlower, WeekPhasePreFlower,
		WeekPhaseFlower, WeekPhaseFlower, WeekPhaseFlower,
		WeekPhaseRipening, WeekPhaseRipening,
		WeekPhaseFlush,
	}
	for i, week := range weeks {
		if week.WeekNumber != i+1 {
			t.Fatalf("week %d has number %d", i, week.WeekNumber)
		}
		if week.PhaseName != expected[i] {
			t.Fatalf("week %d expected phase %q, got %q", i+1, expected[i], week.PhaseName)
		}
	}
}

func TestWeekListEqual(t *testing.T) {
	a := WeekList{{WeekNumber: 1, PhaseName: WeekPhaseVegetative}}
	b := WeekList{{WeekNumber: 1, PhaseName: WeekPhaseVegetative}}
	if !a.Equal(b) {
		t.Fatal("identical schedules must compare equal")
	}
	c := WeekList{{WeekNumber: 1, PhaseName: WeekPhaseFlower}}
	if a.Equal(c) {
		t.Fatal("different phases must not compare equal")
	}
	if a.Equal(WeekList{}) {
		t.Fatal("different lengths must not compare equal")
	}
}

func TestCurrentPhaseToken(t *testing.T) {
	daysAgo := func(n int) *time.Time {
		d := time.Now().UTC().AddDate(0, 0, -n)
		return &d
	}

	drying := Ciclo{State: CicloStateDrying, Phase: CicloPhaseFlowering}
	if got := drying.CurrentPhaseToken(); got != WeekPhaseDrying {
		t.Fatalf("drying token: %q", got)
	}
	finalized := Ciclo{State: CicloStateFinalized}
	if got := finalized.CurrentPhaseToken(); got != "FINALIZED" {
		t.Fatalf("finalized token: %q", got)
	}
	veg := Ciclo{State: CicloStateActive, Phase: CicloPhaseVegetative}
	if got := veg.CurrentPhaseToken(); got != WeekPhaseVegetative {
		t.Fatalf("vegetative token: %q", got)
	}

	flora := Ciclo{
		State:          CicloStateActive,
		Phase:          CicloPhaseFlowering,
		FloweringWeeks: StandardFloweringWeeks(),
	}
	// no start date recorded yet
	if got := flora.CurrentPhaseToken(); got != WeekPhasePreFlower {
		t.Fatalf("flowering without start date: %q", got)
	}
	flora.FloweringStartDate = daysAgo(0)
	if got := flora.CurrentPhaseToken(); got != WeekPhasePreFlower {
		t.Fatalf("flowering week one: %q", got)
	}
	flora.FloweringStartDate = daysAgo(25)
	if got := flora.CurrentPhaseToken(); got != WeekPhaseFlower {
		t.Fatalf("flowering week four: %q", got)
	}
	// past the end of the schedule the last week's phase sticks
	flora.FloweringStartDate = daysAgo(100)
	if got := flora.CurrentPhaseToken(); got != WeekPhaseFlush {
		t.Fatalf("flowering past schedule: %q", got)
	}
}

func TestPhaseDisplay(t *testing.T) {
	if got := PhaseDisplay(WeekPhaseVegetative).Label; got != "Vegetativo" {
		t.Fatalf("vegetative label: %q", got)
	}
	if got := PhaseDisplay(WeekPhaseDrying).Label; got != "Secado" {
		t.Fatalf("drying label: %q", got)
	}
	// any unknown token falls back instead of erroring
	for _, token := range []string{"", "FINALIZED", "garbage"} {
		if got := PhaseDisplay(token).Label; got != "Finalizado" {
			t.Fatalf("fallback for %q: %q", token, got)
		}
	}
}
