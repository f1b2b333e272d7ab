// Package prompt loads the text templates behind every generation call.
//
// Prompts are text/template files named <name>.txt. The defaults are
// embedded in the binary; a directory passed to NewLoader (usually
// <data_dir>/prompts) overrides them file by file.
//
// Example usage:
//
//	loader := prompt.ForDataDir(".reportflow")
//	text, err := loader.Render(prompt.Insight, struct{ Analysis string }{analysis})
package prompt
