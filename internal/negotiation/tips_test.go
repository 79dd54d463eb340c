package negotiation

import "testing"

func TestExtractTips(t *testing.T) {
	payload := "Recommended Terms: 12-month renewal at 10% off\n" +
		"Some preamble that is not a tip.\n" +
		"Negotiation Strategies:\n" +
		"- Acknowledge the concern first\n" +
		"  - Anchor on total value\n" +
		"- Offer a small concession\n" +
		"\n" +
		"Closing remarks that must not be collected."

	tips := ExtractTips(payload)
	want := []string{
		"Acknowledge the concern first",
		"Anchor on total value",
		"Offer a small concession",
	}
	if len(tips) != len(want) {
		t.Fatalf("ExtractTips() returned %d tips, want %d: %v", len(tips), len(want), tips)
	}
	for i := range want {
		if tips[i] != want[i] {
			t.Fatalf("tip[%d] = %q, want %q", i, tips[i], want[i])
		}
	}
}

func TestExtractTipsNoMarker(t *testing.T) {
	tips := ExtractTips("just some text\nwith no strategy section")
	if len(tips) != 0 {
		t.Fatalf("ExtractTips() = %v, want none", tips)
	}
}

func TestExtractTipsStopsAtBlankLine(t *testing.T) {
	payload := Marker + "\n- one\n- two\n\n- after the break"
	tips := ExtractTips(payload)
	if len(tips) != 2 {
		t.Fatalf("ExtractTips() returned %d tips, want 2: %v", len(tips), tips)
	}
}

func TestExtractTipsRunsToEndWithoutBlank(t *testing.T) {
	payload := "intro\n" + Marker + "\n- only\n- tips\n- here"
	tips := ExtractTips(payload)
	if len(tips) != 3 {
		t.Fatalf("ExtractTips() returned %d tips, want 3: %v", len(tips), tips)
	}
	if tips[2] != "here" {
		t.Fatalf("tip[2] = %q, want %q", tips[2], "here")
	}
}

func TestExtractTipsEmptyPayload(t *testing.T) {
	if tips := ExtractTips(""); len(tips) != 0 {
		t.Fatalf("ExtractTips(\"\") = %v, want none", tips)
	}
}
