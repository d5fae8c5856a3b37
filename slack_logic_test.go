package main

import (
	"strings"
	"testing"
)

func TestSplitMessage(t *testing.T) {
	t.Run("short message stays whole", func(t *testing.T) {
		chunks := splitMessage("hello\nworld", 100)
		if len(chunks) != 1 || chunks[0] != "hello\nworld" {
			t.Errorf("chunks = %v, want single chunk", chunks)
		}
	})

	t.Run("long message splits on lines", func(t *testing.T) {
		var lines []string
		for i := 0; i < 50; i++ {
			lines = append(lines, "order line number xxxxxxxxxx")
		}
		text := strings.Join(lines, "\n")

		chunks := splitMessage(text, 200)
		if len(chunks) < 2 {
			t.Fatalf("chunks = %d, want several", len(chunks))
		}
		for i, chunk := range chunks {
			if len(chunk) > 200 {
				t.Errorf("chunk[%d] length = %d, want <= 200", i, len(chunk))
			}
		}

		rejoined := strings.Join(chunks, "\n")
		if rejoined != text {
			t.Error("splitting lost or reordered lines")
		}
	})
}

func TestFormatOrderList(t *testing.T) {
	msg := formatOrderList(sampleReport(ReportOverdue))

	for _, want := range []string{
		"Overdue orders by store:",
		"Store Almaty Mart:",
		"Order: ORD-1",
		"Order: ORD-2",
		"Store Astana InStreet:",
		"Order: ORD-3",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}

	// Stores appear in first-seen order.
	if strings.Index(msg, "Almaty Mart") > strings.Index(msg, "Astana InStreet") {
		t.Error("store order not preserved")
	}
}

func TestFormatStatistics(t *testing.T) {
	msg := formatStatistics(sampleReport(ReportPending))

	for _, want := range []string{
		"Orders pending courier handover statistics:",
		"Almaty Mart: 2 orders",
		"Astana InStreet: 1 orders",
		"Total: 3 orders",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
