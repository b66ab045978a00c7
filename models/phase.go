package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/utils"
)

// CicloWeek is one entry of a cycle's derived week schedule.
type CicloWeek struct {
	WeekNumber int    `json:"week_number"`
	PhaseName  string `json:"phase_name"`
}

// WeekList is a JSON column holding an ordered week schedule.
type WeekList []CicloWeek

func (l WeekList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *WeekList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("cannot scan %T into WeekList", value)
}

// Equal compares two schedules structurally. Used by the reconcile step to
// decide whether the stored schedule needs rewriting.
func (l WeekList) Equal(other WeekList) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// DaysSince returns the +1-based count of whole days elapsed since the UTC
// midnight anchor of start (day 1 = the start date itself). nil start yields
// nil; a start date in the future yields 0.
func DaysSince(start *time.Time, now time.Time) *int {
	if start == nil || start.IsZero() {
		return nil
	}
	startDay := utils.TruncateToUTCDate(*start)
	nowDay := utils.TruncateToUTCDate(now)
	if startDay.After(nowDay) {
		zero := 0
		return &zero
	}
	days := int(nowDay.Sub(startDay).Hours()/24) + 1
	return &days
}

// DaysBetween returns the absolute whole-day difference between two instants,
// ceiling-rounded.
func DaysBetween(a, b time.Time) int {
	diff := b.Sub(a)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(diff.Hours() / 24))
}

// VegetativeWeeks derives the vegetative schedule from the start date:
// ceil(daysSince/7) entries, at least one once a full day has elapsed.
// Re-deriving from the same start date always reproduces the same sequence,
// which the reconcile step relies on.
func VegetativeWeeks(start *time.Time, now time.Time) WeekList {
	days := DaysSince(start, now)
	if days == nil || *days < 1 {
		return WeekList{}
	}
	numWeeks := utils.CeilDiv(*days, 7)
	if numWeeks < 1 {
		numWeeks = 1
	}
	weeks := make(WeekList, 0, numWeeks)
	for i := 1; i <= numWeeks; i++ {
		weeks = append(weeks, CicloWeek{WeekNumber: i, PhaseName: WeekPhaseVegetative})
	}
	return weeks
}

// StandardFloweringWeeks returns the fixed 9-week flowering template.
// This is a domain constant, not derived from dates.
func StandardFloweringWeeks() WeekList {
	weeks := make(WeekList, 0, 9)
	for i := 1; i <= 9; i++ {
		var phase string
		switch {
		case i <= 3:
			phase = WeekPhasePreFlower
		case i <= 6:
			phase = WeekPhaseFlower
		case i <= 8:
			phase = WeekPhaseRipening
		default:
			phase = WeekPhaseFlush
		}
		weeks = append(weeks, CicloWeek{WeekNumber: i, PhaseName: phase})
	}
	return weeks
}

// PhaseDisplayInfo is presentation metadata for a phase/state token.
type PhaseDisplayInfo struct {
	Label    string `json:"label"`
	ColorTag string `json:"color_tag"`
	CssClass string `json:"css_class"`
}

var phaseDisplayTable = map[string]PhaseDisplayInfo{
	WeekPhaseVegetative: {Label: "Vegetativo", ColorTag: "green", CssClass: "phase-veg"},
	WeekPhasePreFlower:  {Label: "Pre-flora", ColorTag: "lime", CssClass: "phase-preflower"},
	WeekPhaseFlower:     {Label: "Flora", ColorTag: "purple", CssClass: "phase-flower"},
	WeekPhaseRipening:   {Label: "Maduración", ColorTag: "orange", CssClass: "phase-ripening"},
	WeekPhaseFlush:      {Label: "Lavado", ColorTag: "blue", CssClass: "phase-flush"},
	WeekPhaseDrying:     {Label: "Secado", ColorTag: "brown", CssClass: "phase-drying"},
}

var phaseDisplayFallback = PhaseDisplayInfo{Label: "Finalizado", ColorTag: "gray", CssClass: "phase-finalized"}

// PhaseDisplay maps a phase/state token to presentation metadata. Total:
// unknown tokens map to the finalized fallback, never an error.
func PhaseDisplay(token string) PhaseDisplayInfo {
	if info, ok := phaseDisplayTable[token]; ok {
		return info
	}
	return phaseDisplayFallback
}
