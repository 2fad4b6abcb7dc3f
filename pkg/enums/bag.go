package enums

import (
	"fmt"
	"strings"
)

// BagStatus tracks where a physical bag is.
type BagStatus string

const (
	BagStatusAvailable  BagStatus = "Available"
	BagStatusIssued     BagStatus = "Issued"
	BagStatusInUse      BagStatus = "In Use"
	BagStatusUnreturned BagStatus = "Unreturned"
	BagStatusDamaged    BagStatus = "Damaged"
)

var validBagStatuses = []BagStatus{
	BagStatusAvailable,
	BagStatusIssued,
	BagStatusInUse,
	BagStatusUnreturned,
	BagStatusDamaged,
}

func (s BagStatus) String() string {
	return string(s)
}

func (s BagStatus) IsValid() bool {
	for _, candidate := range validBagStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsHeld reports whether a member currently holds the bag.
func (s BagStatus) IsHeld() bool {
	return s == BagStatusIssued || s == BagStatusInUse
}

func ParseBagStatus(value string) (BagStatus, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
	for _, candidate := range validBagStatuses {
		if strings.EqualFold(string(candidate), normalized) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bag status %q", value)
}

// BagCondition is the wear grade recorded by ops.
type BagCondition string

const (
	BagConditionGood    BagCondition = "Good"
	BagConditionFair    BagCondition = "Fair"
	BagConditionWorn    BagCondition = "Worn"
	BagConditionDamaged BagCondition = "Damaged"
)

var validBagConditions = []BagCondition{
	BagConditionGood,
	BagConditionFair,
	BagConditionWorn,
	BagConditionDamaged,
}

func (c BagCondition) String() string {
	return string(c)
}

func (c BagCondition) IsValid() bool {
	for _, candidate := range validBagConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

func ParseBagCondition(value string) (BagCondition, error) {
	for _, candidate := range validBagConditions {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bag condition %q", value)
}

// BagAction is an ops operation on a bag.
type BagAction string

const (
	BagActionIssue           BagAction = "issue"
	BagActionMarkInUse       BagAction = "mark_in_use"
	BagActionReturn          BagAction = "return"
	BagActionMarkUnreturned  BagAction = "mark_unreturned"
	BagActionUpdateCondition BagAction = "update_condition"
)

var validBagActions = []BagAction{
	BagActionIssue,
	BagActionMarkInUse,
	BagActionReturn,
	BagActionMarkUnreturned,
	BagActionUpdateCondition,
}

func (a BagAction) String() string {
	return string(a)
}

func (a BagAction) IsValid() bool {
	for _, candidate := range validBagActions {
		if candidate == a {
			return true
		}
	}
	return false
}

func ParseBagAction(value string) (BagAction, error) {
	for _, candidate := range validBagActions {
		if string(candidate) == strings.TrimSpace(value) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bag action %q", value)
}
