package memtrack

import "testing"

func TestTracker_AddSubtractBalance(t *testing.T) {
	tr := New(1 << 20)
	tr.Add(100)
	tr.Add(50)
	tr.Subtract(30)

	if got := tr.Balance(); got != 120 {
		t.Fatalf("Balance() = %d, want 120", got)
	}
}

func TestTracker_BalanceIncludesRegisteredSources(t *testing.T) {
	tr := New(1 << 20)
	tr.Add(100)
	tr.RegisterSource("block-cache", func() int64 { return 200 })
	tr.RegisterSource("query-cache", func() int64 { return 50 })

	if got := tr.Balance(); got != 350 {
		t.Fatalf("Balance() = %d, want 350", got)
	}
}

func TestTracker_RegisterSourceReplacesPriorRegistration(t *testing.T) {
	tr := New(1 << 20)
	tr.RegisterSource("block-cache", func() int64 { return 200 })
	tr.RegisterSource("block-cache", func() int64 { return 10 })

	if got := tr.Balance(); got != 10 {
		t.Fatalf("Balance() = %d, want 10 after replacing source", got)
	}
}

func TestTracker_AdmitRefusesOverLimit(t *testing.T) {
	tr := New(1000)
	tr.Add(900)

	if !tr.Admit(50) {
		t.Fatal("Admit(50) should succeed, 900+50 <= 1000")
	}
	if tr.Admit(200) {
		t.Fatal("Admit(200) should refuse, 900+200 > 1000")
	}
}

func TestTracker_SetLimitChangesAdmission(t *testing.T) {
	tr := New(100)
	tr.Add(90)
	if tr.Admit(20) {
		t.Fatal("Admit(20) should refuse under limit 100")
	}

	tr.SetLimit(200)
	if !tr.Admit(20) {
		t.Fatal("Admit(20) should succeed after raising limit to 200")
	}
}
