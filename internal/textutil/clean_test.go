package textutil

import (
	"strings"
	"testing"
)

func str(s string) *string { return &s }

func TestCleanStripsMarkupAndEntities(t *testing.T) {
	t.Parallel()

	in := str(`<p>Waymo &amp; Cruise   expand &quot;driverless&quot; service</p><script>alert(1)</script>`)
	got := Clean(in)
	if got == nil {
		t.Fatal("expected non-nil result")
	}
	want := `Waymo & Cruise expand "driverless" service`
	if *got != want {
		t.Fatalf("got %q, want %q", *got, want)
	}
}

func TestCleanRemovesStyleBlocks(t *testing.T) {
	t.Parallel()

	in := str(`<style>body { color: red }</style>A robotaxi pilot launched downtown today.`)
	got := Clean(in)
	if got == nil {
		t.Fatal("expected non-nil result")
	}
	if strings.Contains(*got, "color") {
		t.Fatalf("style content leaked into %q", *got)
	}
}

func TestCleanReturnsNilBelowFloor(t *testing.T) {
	t.Parallel()

	if got := Clean(str("<p>Hi</p>")); got != nil {
		t.Fatalf("expected nil for short content, got %q", *got)
	}
	if got := Clean(nil); got != nil {
		t.Fatalf("expected nil for nil input, got %q", *got)
	}
	if got := Clean(str("")); got != nil {
		t.Fatalf("expected nil for empty input, got %q", *got)
	}
}

func TestCleanKeepsContentAtFloor(t *testing.T) {
	t.Parallel()

	in := str("<p>" + strings.Repeat("A", 30) + "</p>")
	got := Clean(in)
	if got == nil {
		t.Fatal("expected non-nil result for 30-char content")
	}
	if *got != strings.Repeat("A", 30) {
		t.Fatalf("unexpected result %q", *got)
	}
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	in := str("Autonomous   trucking\n\n\t firms  raised   new funding")
	got := Clean(in)
	if got == nil {
		t.Fatal("expected non-nil result")
	}
	if *got != "Autonomous trucking firms raised new funding" {
		t.Fatalf("whitespace not collapsed: %q", *got)
	}
}
