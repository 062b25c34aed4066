package epub

import "testing"

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		ext      string
		wantType string
		wantCat  Category
		wantCore bool
	}{
		{".jpg", "image/jpeg", CategoryImage, true},
		{".JPEG", "image/jpeg", CategoryImage, true},
		{"png", "image/png", CategoryImage, true},
		{".gif", "image/gif", CategoryImage, true},
		{".svg", "image/svg+xml", CategoryImage, true},
		{".xhtml", MediaTypeXHTML, CategoryMarkup, true},
		{".htm", MediaTypeXHTML, CategoryMarkup, true},
		{".css", MediaTypeCSS, CategoryStyle, true},
		{".xml", "application/xml", CategoryMarkup, true},
		{".dtb", "application/x-dtbook+xml", CategoryMarkup, true},
		{".tif", "image/tiff", CategoryImage, false},
		{".TIFF", "image/tiff", CategoryImage, false},
		{".txt", "text/plain", CategoryText, false},
		{".pdf", "application/pdf", CategoryBinary, false},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			info, ok := c.Classify(tt.ext)
			if !ok {
				t.Fatalf("Classify(%q) found no mapping", tt.ext)
			}
			if info.MediaType != tt.wantType || info.Category != tt.wantCat || info.Core != tt.wantCore {
				t.Errorf("Classify(%q) = %+v, want {%s %v %v}", tt.ext, info, tt.wantType, tt.wantCat, tt.wantCore)
			}
		})
	}
}

func TestClassifier_Unknown(t *testing.T) {
	c := NewClassifier(nil)
	for _, ext := range []string{".mp3", ".epub", "", ".zip"} {
		if info, ok := c.Classify(ext); ok {
			t.Errorf("Classify(%q) = %+v, want no mapping", ext, info)
		}
	}
}

func TestClassifier_Idempotent(t *testing.T) {
	c := NewClassifier(nil)
	for ext := range DefaultMediaTable() {
		first, ok1 := c.Classify(ext)
		second, ok2 := c.Classify(ext)
		if first != second || ok1 != ok2 {
			t.Errorf("Classify(%q) not stable: %+v/%v then %+v/%v", ext, first, ok1, second, ok2)
		}
	}
}

func TestClassifier_InjectedTableIsCopied(t *testing.T) {
	table := MediaTable{".MD": {MediaType: "text/markdown", Category: CategoryText}}
	c := NewClassifier(table)
	table[".md"] = MediaInfo{MediaType: "changed"}

	info, ok := c.ClassifyPath("notes/README.md")
	if !ok || info.MediaType != "text/markdown" {
		t.Fatalf("ClassifyPath() = %+v, %v; want text/markdown", info, ok)
	}
	if _, ok := c.Classify(".png"); ok {
		t.Error("injected table should replace the default table")
	}
}

func TestCategory_String(t *testing.T) {
	if CategoryImage.String() != "image" || CategoryBinary.String() != "binary" || Category(0).String() != "unknown" {
		t.Error("unexpected Category.String() values")
	}
}
