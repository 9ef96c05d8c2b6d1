package match

import "testing"

func testEntries() []Entry {
	return []Entry{
		{InputNormalized: "IBUPROFENO 400", DisplayName: "Ibuprofeno", Dose: "400mg"},
		{InputNormalized: "PERVINOX INCOLORO", DisplayName: "Pervinox Incoloro", Dose: ""},
		{InputNormalized: "NEUMOTEROL 200", DisplayName: "Neumoterol 200", Dose: "200mcg"},
	}
}

func TestMatchExact(t *testing.T) {
	d := NewDictionary(testEntries(), DefaultScorer())
	name, dose := d.Match("ibuprofeno 400")
	if name != "Ibuprofeno" || dose != "400mg" {
		t.Fatalf("exact match = (%q, %q), want (Ibuprofeno, 400mg)", name, dose)
	}
}

func TestMatchTokenOverlapAndSimilarity(t *testing.T) {
	d := NewDictionary(testEntries(), DefaultScorer())
	name, dose := d.Match("IBUPROFENO 400 MG")
	if name != "Ibuprofeno" || dose != "400mg" {
		t.Fatalf("fuzzy match = (%q, %q), want (Ibuprofeno, 400mg)", name, dose)
	}
}

func TestMatchNotFound(t *testing.T) {
	d := NewDictionary(testEntries(), DefaultScorer())
	name, dose := d.Match("XYZQ")
	if name != NotFound || dose != "" {
		t.Fatalf("unmatchable text = (%q, %q), want (%q, \"\")", name, dose, NotFound)
	}
}

func TestMatchEmptyText(t *testing.T) {
	d := NewDictionary(testEntries(), DefaultScorer())
	name, dose := d.Match("")
	if name != NotFound || dose != "" {
		t.Fatalf("empty text = (%q, %q), want (%q, \"\")", name, dose, NotFound)
	}
}

func TestMatchFirstBestWinsTies(t *testing.T) {
	// Identical inputs under different display names score identically;
	// the first entry in table order must win.
	entries := []Entry{
		{InputNormalized: "EVAPLAN DIGITAL", DisplayName: "EVAPLAN digital"},
		{InputNormalized: "EVAPLAN DIGITAL", DisplayName: "second"},
	}
	d := NewDictionary(entries, DefaultScorer())
	name, _ := d.Match("EVAPLAN DIGITAL PRUEBA")
	if name != "EVAPLAN digital" {
		t.Fatalf("tie-break picked %q, want first entry", name)
	}
}

func TestLoadDictionary(t *testing.T) {
	csvData := []byte("\xef\xbb\xbf" +
		"Input,Nombre del medicamento,Dosis\n" +
		"\"Ibuprofeno 400\",\"Ibuprofeno\",\"400mg\"\n" +
		"\"pervinox incoloro\",\"Pervinox Incoloro\",\"\"\n" +
		"shortrow\n")
	entries, err := LoadDictionary(csvData)
	if err != nil {
		t.Fatalf("LoadDictionary: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].InputNormalized != "IBUPROFENO 400" {
		t.Errorf("Input not normalized on load: %q", entries[0].InputNormalized)
	}
	if entries[1].DisplayName != "Pervinox Incoloro" {
		t.Errorf("display name = %q", entries[1].DisplayName)
	}
	if entries[2].DisplayName != "" || entries[2].Dose != "" {
		t.Errorf("short row should load with empty optional fields: %+v", entries[2])
	}
}

func TestLoadDictionaryMissingInputColumn(t *testing.T) {
	if _, err := LoadDictionary([]byte("Nombre,Dosis\na,b\n")); err == nil {
		t.Fatal("expected error for table without Input column")
	}
}
