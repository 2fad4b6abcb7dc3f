package enums

import "testing"

func TestParseDropStatusAcceptsVariants(t *testing.T) {
	cases := map[string]DropStatus{
		"Ready":      DropStatusReady,
		"ready":      DropStatusReady,
		"in_transit": DropStatusInTransit,
		"At Laundry": DropStatusAtLaundry,
	}
	for input, want := range cases {
		got, err := ParseDropStatus(input)
		if err != nil {
			t.Fatalf("ParseDropStatus(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseDropStatus(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := ParseDropStatus("Lost"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestDropStatusOrdering(t *testing.T) {
	if !DropStatusInTransit.IsBackwardFrom(DropStatusReady) {
		t.Fatalf("Ready -> In Transit should be backward")
	}
	if DropStatusCollected.IsBackwardFrom(DropStatusReady) {
		t.Fatalf("Ready -> Collected is forward")
	}
	if DropStatusReady.IsBackwardFrom("") {
		t.Fatalf("unknown previous state is never backward")
	}
	if !DropStatusAtLaundry.IsInFlight() || DropStatusReady.IsInFlight() {
		t.Fatalf("unexpected in-flight classification")
	}
	statuses := DropStatuses()
	statuses[0] = "mutated"
	if DropStatuses()[0] != DropStatusDropped {
		t.Fatalf("DropStatuses must return a copy")
	}
}

func TestIssueStatusTerminalAndOpen(t *testing.T) {
	if !IssueStatusClosed.IsTerminal() || IssueStatusResolved.IsTerminal() {
		t.Fatalf("only Closed is terminal")
	}
	if IssueStatusResolved.IsOpen() || !IssueStatusAwaitingCustomer.IsOpen() {
		t.Fatalf("unexpected open classification")
	}
	if got, err := ParseIssueStatus("awaiting_customer"); err != nil || got != IssueStatusAwaitingCustomer {
		t.Fatalf("unexpected parse result %q %v", got, err)
	}
}

func TestSubscriptionStatusMapsToMemberStatus(t *testing.T) {
	cases := []struct {
		in     SubscriptionStatus
		want   MemberStatus
		mapped bool
	}{
		{SubscriptionStatusActive, MemberStatusActive, true},
		{SubscriptionStatusTrialing, MemberStatusActive, true},
		{SubscriptionStatusPaused, MemberStatusPaused, true},
		{SubscriptionStatusCanceled, MemberStatusCancelled, true},
		{SubscriptionStatusPastDue, "", false},
	}
	for _, tc := range cases {
		got, ok := tc.in.MemberStatus()
		if got != tc.want || ok != tc.mapped {
			t.Fatalf("%s: got (%q,%v) want (%q,%v)", tc.in, got, ok, tc.want, tc.mapped)
		}
	}
}

func TestRiskSeverityOrdering(t *testing.T) {
	if !(RiskLevelBreached.Severity() > RiskLevelCritical.Severity() &&
		RiskLevelCritical.Severity() > RiskLevelAtRisk.Severity() &&
		RiskLevelAtRisk.Severity() > RiskLevelOK.Severity()) {
		t.Fatalf("risk severities out of order")
	}
	if !RiskLevelBreached.NeedsAlert() || RiskLevelAtRisk.NeedsAlert() {
		t.Fatalf("unexpected alert classification")
	}
}

func TestParseBagValues(t *testing.T) {
	if s, err := ParseBagStatus("in_use"); err != nil || s != BagStatusInUse {
		t.Fatalf("unexpected bag status %q %v", s, err)
	}
	if _, err := ParseBagAction("destroy"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
	if c, err := ParseBagCondition("worn"); err != nil || c != BagConditionWorn {
		t.Fatalf("unexpected condition %q %v", c, err)
	}
	if !BagStatusIssued.IsHeld() || BagStatusAvailable.IsHeld() {
		t.Fatalf("unexpected held classification")
	}
}

func TestParseCurrencyDefaultsToGBP(t *testing.T) {
	if c, err := ParseCurrency(""); err != nil || c != CurrencyGBP {
		t.Fatalf("expected GBP default, got %q %v", c, err)
	}
	if c, err := ParseCurrency("eur"); err != nil || c.Symbol() != "€" {
		t.Fatalf("unexpected currency %q %v", c, err)
	}
}
