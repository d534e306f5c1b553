package utils

import "testing"

func TestT_Fallback(t *testing.T) {
	if got := T("fr", "error.form_expired"); got != "Formulário expirado" {
		t.Fatalf("fallback to pt-BR failed: %s", got)
	}
}

func TestT_English(t *testing.T) {
	if got := T("en", "error.already_answered"); got != "Form was already answered" {
		t.Fatalf("unexpected: %s", got)
	}
}

func TestT_UnknownKey(t *testing.T) {
	if got := T("en", "nope"); got != "nope" {
		t.Fatalf("want key echoed, got %s", got)
	}
}

func TestT_CatalogsShareKeys(t *testing.T) {
	for key := range translations[DefaultLocale] {
		for _, loc := range SupportedLocales {
			if _, ok := translations[loc][key]; !ok {
				t.Errorf("locale %s missing %s", loc, key)
			}
		}
	}
}
