package annotate

import "testing"

func TestExtractSnippets(t *testing.T) {
	text := "Contact legal@acme.com or visit https://acme.com/terms. " +
		"Follow @acmecorp, tagged #contracts. Revenue grew 12.5% this year."

	snippets := ExtractSnippets(text)

	if got := snippets["Emails"]; len(got) != 1 || got[0] != "legal@acme.com" {
		t.Errorf("Emails = %v", got)
	}
	if got := snippets["URLs"]; len(got) != 1 {
		t.Errorf("URLs = %v", got)
	}
	if got := snippets["Hashtags"]; len(got) != 1 || got[0] != "#contracts" {
		t.Errorf("Hashtags = %v", got)
	}
	if got := snippets["Percentages"]; len(got) != 1 || got[0] != "12.5%" {
		t.Errorf("Percentages = %v", got)
	}
	if got, ok := snippets["File Paths"]; !ok || len(got) != 0 {
		t.Errorf("File Paths = %v, want empty list", got)
	}
}
