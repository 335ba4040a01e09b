package voices

// DefaultVoice is used when a request does not name a voice.
const DefaultVoice = "tara"

// Voice describes one synthesis voice.
type Voice struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender"`
}

// catalog lists the voices the backend model was trained with.
var catalog = []Voice{
	{Name: "tara", Language: "en", Gender: "female"},
	{Name: "leah", Language: "en", Gender: "female"},
	{Name: "jess", Language: "en", Gender: "female"},
	{Name: "leo", Language: "en", Gender: "male"},
	{Name: "dan", Language: "en", Gender: "male"},
	{Name: "mia", Language: "en", Gender: "female"},
	{Name: "zac", Language: "en", Gender: "male"},
	{Name: "zoe", Language: "en", Gender: "female"},
}

// All returns every available voice, in catalog order.
func All() []Voice {
	out := make([]Voice, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the voice names, in catalog order.
func Names() []string {
	names := make([]string, len(catalog))
	for i, v := range catalog {
		names[i] = v.Name
	}
	return names
}

// Lookup finds a voice by name.
func Lookup(name string) (Voice, bool) {
	for _, v := range catalog {
		if v.Name == name {
			return v, true
		}
	}
	return Voice{}, false
}

// Languages returns the distinct languages in the catalog, in first-seen order.
func Languages() []string {
	seen := make(map[string]bool)
	var langs []string
	for _, v := range catalog {
		if !seen[v.Language] {
			seen[v.Language] = true
			langs = append(langs, v.Language)
		}
	}
	return langs
}
