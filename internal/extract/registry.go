package extract

import "github.com/anchorhq/anchor/internal/anchorerr"

// Registry dispatches a file extension to the LanguageSpec that extracts
// it.
type Registry struct {
	specs    map[Language]*LanguageSpec
	extIndex map[string]*LanguageSpec
}

// NewRegistry returns a Registry with every supported language spec
// registered (see languages.go).
func NewRegistry() *Registry {
	r := &Registry{
		specs:    make(map[Language]*LanguageSpec),
		extIndex: make(map[string]*LanguageSpec),
	}
	for _, spec := range AllLanguageSpecs() {
		r.Register(spec)
	}
	return r
}

// Register adds spec to the registry, indexing it by every extension
// FileExtensions lists for its language.
func (r *Registry) Register(spec *LanguageSpec) {
	r.specs[spec.Language] = spec
	for _, ext := range FileExtensions[spec.Language] {
		r.extIndex[ext] = spec
	}
}

// SpecForExtension returns the LanguageSpec registered for ext, if any.
func (r *Registry) SpecForExtension(ext string) (*LanguageSpec, bool) {
	s, ok := r.extIndex[ext]
	return s, ok
}

// SupportedExtensions returns every file extension with a registered spec.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.extIndex))
	for ext := range r.extIndex {
		exts = append(exts, ext)
	}
	return exts
}

// ExtractFile dispatches path's extension to its LanguageSpec and runs
// Extract. Unsupported extensions fail with anchorerr.UnsupportedLanguage.
func (r *Registry) ExtractFile(path string, content []byte) (*FileExtraction, error) {
	ext := extOf(path)
	spec, ok := r.extIndex[ext]
	if !ok {
		return nil, anchorerr.New(anchorerr.UnsupportedLanguage, "no extractor for extension "+ext)
	}
	return Extract(spec, path, content)
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
