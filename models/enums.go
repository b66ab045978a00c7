package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

type CicloPhase string

const (
	CicloPhaseVegetative CicloPhase = "VEGETATIVE"
	CicloPhaseFlowering  CicloPhase = "FLOWERING"
)

func (p CicloPhase) Valid() bool {
	switch p {
	case CicloPhaseVegetative, CicloPhaseFlowering:
		return true
	}
	return false
}

type CicloState string

const (
	CicloStateActive    CicloState = "ACTIVE"
	CicloStateDrying    CicloState = "DRYING"
	CicloStateFinalized CicloState = "FINALIZED"
)

func (s CicloState) Valid() bool {
	switch s {
	case CicloStateActive, CicloStateDrying, CicloStateFinalized:
		return true
	}
	return false
}

type CultivationType string

const (
	CultivationTypeSubstrate  CultivationType = "SUBSTRATE"
	CultivationTypeHydroponic CultivationType = "HYDROPONIC"
)

func (t CultivationType) Valid() bool {
	switch t {
	case CultivationTypeSubstrate, CultivationTypeHydroponic:
		return true
	}
	return false
}

// StockSource selects which catalog stock field a cycle allocation consumes.
type StockSource string

const (
	StockSourceClone StockSource = "CLONE"
	StockSourceSeed  StockSource = "SEED"
)

func (s StockSource) Valid() bool {
	switch s {
	case StockSourceClone, StockSourceSeed:
		return true
	}
	return false
}

type PhenoDecision string

const (
	PhenoDecisionEvaluating PhenoDecision = "EVALUATING"
	PhenoDecisionKeep       PhenoDecision = "KEEP"
	PhenoDecisionDiscard    PhenoDecision = "DISCARD"
)

func (d PhenoDecision) Valid() bool {
	switch d {
	case PhenoDecisionEvaluating, PhenoDecisionKeep, PhenoDecisionDiscard:
		return true
	}
	return false
}

type LogEntryType string

const (
	LogEntryTypeWatering       LogEntryType = "WATERING"
	LogEntryTypeSolutionChange LogEntryType = "SOLUTION_CHANGE"
	LogEntryTypePestControl    LogEntryType = "PEST_CONTROL"
	LogEntryTypePruning        LogEntryType = "PRUNING"
	LogEntryTypeTransplant     LogEntryType = "TRANSPLANT"
)

func (t LogEntryType) Valid() bool {
	switch t {
	case LogEntryTypeWatering, LogEntryTypeSolutionChange, LogEntryTypePestControl,
		LogEntryTypePruning, LogEntryTypeTransplant:
		return true
	}
	return false
}

type NotificationKind string

const (
	NotificationKindLowStock        NotificationKind = "LOW_STOCK"
	NotificationKindHarvestComplete NotificationKind = "HARVEST_COMPLETE"
	NotificationKindGeneral         NotificationKind = "GENERAL"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "A"
	UserRoleGrower UserRole = "G"
)

// Week phase tokens. VEGETATIVE weeks are date-derived; flowering weeks follow
// the fixed 9-week template. DRYING is a legacy token stripped on reconcile.
const (
	WeekPhaseVegetative = "VEGETATIVE"
	WeekPhasePreFlower  = "PRE-FLOWER"
	WeekPhaseFlower     = "FLOWER"
	WeekPhaseRipening   = "RIPENING"
	WeekPhaseFlush      = "FLUSH"
	WeekPhaseDrying     = "DRYING"
)

// StringList is a JSON-encoded string array column (tags, fertilizer lists).
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
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
	return fmt.Errorf("cannot scan %T into StringList", value)
}

var ErrInvalidEnum = errors.New("invalid enum value")
