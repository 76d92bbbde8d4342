package arbor

import "testing"

func TestToElementName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"Name", "name"},
		{"FirstName", "firstName"},
		{"title", "title"},
		{"XMLParser", "xmlParser"},
		{"HTTPServer", "httpServer"},
		{"URLPath", "urlPath"},
		{"UserID", "userId"},
		{"PCatch", "pCatch"},
		{"1st", "_1st"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := ToElementName(tt.id); got != tt.want {
				t.Errorf("ToElementName(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestApplyCase(t *testing.T) {
	tests := []struct {
		style CaseStyle
		want  string
	}{
		{CaseLower, "firstname"},
		{CaseUpper, "FIRSTNAME"},
		{CasePascal, "FirstName"},
		{CaseCamel, "firstName"},
		{CaseSnake, "first_name"},
		{CaseScreamingSnake, "FIRST_NAME"},
		{CaseKebab, "first-name"},
		{CaseScreamingKebab, "FIRST-NAME"},
		{"unknown", "FirstName"},
	}

	for _, tt := range tests {
		t.Run(string(tt.style), func(t *testing.T) {
			if got := ApplyCase("FirstName", tt.style); got != tt.want {
				t.Errorf("ApplyCase(FirstName, %s) = %q, want %q", tt.style, got, tt.want)
			}
		})
	}
}

func TestApplyCase_Acronyms(t *testing.T) {
	tests := []struct {
		id    string
		style CaseStyle
		want  string
	}{
		{"XMLParser", CaseCamel, "xmlParser"},
		{"HTTPServer", CaseLowerCamel, "httpServer"},
		{"URLPath", CasePascal, "UrlPath"},
		{"XMLParser", CaseSnake, "xml_parser"},
		{"HTTPServer", CaseKebab, "http-server"},
		{"URLPath", CaseScreamingSnake, "URL_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.id+"/"+string(tt.style), func(t *testing.T) {
			if got := ApplyCase(tt.id, tt.style); got != tt.want {
				t.Errorf("ApplyCase(%s, %s) = %q, want %q", tt.id, tt.style, got, tt.want)
			}
		})
	}
}

func TestSingularize(t *testing.T) {
	tests := map[string]string{
		"tracks":  "track",
		"entries": "entry",
		"item":    "item",
	}
	for in, want := range tests {
		if got := Singularize(in); got != want {
			t.Errorf("Singularize(%q) = %q, want %q", in, got, want)
		}
	}

	if got := Pluralize("track"); got != "tracks" {
		t.Errorf("Pluralize(track) = %q, want tracks", got)
	}
}

func TestDomKey(t *testing.T) {
	tests := []struct {
		name      string
		rename    string
		renameAll CaseStyle
		want      string
	}{
		{"FirstName", "", "", "firstName"},
		{"FirstName", "given", "", "given"},
		{"FirstName", "", CaseKebab, "first-name"},
		{"FirstName", "given", CaseKebab, "given"},
	}

	for _, tt := range tests {
		if got := domKey(tt.name, tt.rename, tt.renameAll); got != tt.want {
			t.Errorf("domKey(%q, %q, %q) = %q, want %q", tt.name, tt.rename, tt.renameAll, got, tt.want)
		}
	}
}
