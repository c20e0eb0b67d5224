package extract

// AllLanguageSpecs returns the full set of LanguageSpecs registered by
// NewRegistry, one per supported grammar.
func AllLanguageSpecs() []*LanguageSpec {
	return []*LanguageSpec{
		goSpec(),
		pythonSpec(),
		javascriptSpec(),
		typescriptSpec(),
		tsxSpec(),
		rustSpec(),
		javaSpec(),
		csharpSpec(),
		rubySpec(),
		cppSpec(),
		swiftSpec(),
	}
}
