package graph

import "testing"

func TestClassEquality(t *testing.T) {
	if NewClass("App", "User") != ParseClass(`App\User`) {
		t.Error("segment and parsed construction should be interchangeable")
	}
	if NewClass("App", "User") == NewClass("App", "Order") {
		t.Error("different names compared equal")
	}
}

func TestParseClassNormalization(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`App\User`, `App\User`},
		{`\App\User`, `App\User`}, // leading separator dropped
		{`User`, `User`},
	}
	for _, tt := range tests {
		if got := ParseClass(tt.in).String(); got != tt.want {
			t.Errorf("ParseClass(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewClassDropsEmptySegments(t *testing.T) {
	if got := NewClass("", "App", "", "User").String(); got != `App\User` {
		t.Errorf("got %q, want %q", got, `App\User`)
	}
}

func TestPlaceholderIsDistinguished(t *testing.T) {
	p := Placeholder()
	if !p.IsPlaceholder() {
		t.Error("Placeholder().IsPlaceholder() = false")
	}
	if p != Placeholder() {
		t.Error("placeholder must equal itself")
	}
	for _, name := range []string{"A", `App\User`, "pending", ""} {
		if ParseClass(name) == p {
			t.Errorf("real class %q compared equal to the placeholder", name)
		}
		if ParseClass(name).IsPlaceholder() {
			t.Errorf("ParseClass(%q).IsPlaceholder() = true", name)
		}
	}
}
