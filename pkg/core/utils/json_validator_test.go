package utils

import "testing"

func TestSmartParse_Strategies(t *testing.T) {
	type payload struct {
		Revenue float64 `json:"revenue"`
	}

	cases := []struct {
		name  string
		input string
	}{
		{"clean", `{"revenue": 22400000}`},
		{"fenced", "```json\n{\"revenue\": 22400000}\n```"},
		{"single_quotes", `{'revenue': 22400000}`},
		{"trailing_comma", `{"revenue": 22400000,}`},
		{"hjson_comment", "{\n  # audited figure\n  revenue: 22400000\n}"},
	}
	for _, tc := range cases {
		var p payload
		if _, err := SmartParse(tc.input, &p); err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if p.Revenue != 22_400_000 {
			t.Errorf("%s: revenue %f", tc.name, p.Revenue)
		}
	}
}

func TestSmartParse_WrongShape(t *testing.T) {
	// A bare number can never populate an object target under any strategy.
	var out map[string]interface{}
	if _, err := SmartParse("12345", &out); err == nil {
		t.Error("expected failure on scalar input against object schema")
	}
}

func TestCleanMarkdown(t *testing.T) {
	in := "```markdown\n# Executive Summary\nStrong margins.\n```"
	want := "# Executive Summary\nStrong margins."
	if got := CleanMarkdown(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := CleanMarkdown("plain text"); got != "plain text" {
		t.Errorf("plain text altered: %q", got)
	}
	// Language tags other than markdown, and a truncated response that never
	// closed its fence.
	if got := CleanMarkdown("```json\n{\"a\": 1}\n```"); got != "{\"a\": 1}" {
		t.Errorf("json fence: got %q", got)
	}
	if got := CleanMarkdown("```\n## Risks\n- concentration"); got != "## Risks\n- concentration" {
		t.Errorf("unclosed fence: got %q", got)
	}
}

func TestValidateMarkdown(t *testing.T) {
	if !ValidateMarkdown("# Heading\n\nSome **bold** text.") {
		t.Error("well-formed markdown rejected")
	}
}
