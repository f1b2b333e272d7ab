package config

// Source indicates where a configuration value came from.
type Source string

// Sources, lowest precedence first.
const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global" // ~/.config/reportflow/config.yaml
	SourceLocal   Source = "local"  // .reportflow.yaml in the project root
	SourceEnv     Source = "env"    // REPORTFLOW_<KEY>
	SourceFlag    Source = "flag"
)

// Precedence returns the rank of s; higher overrides lower. Unknown
// sources rank below defaults.
func (s Source) Precedence() int {
	switch s {
	case SourceDefault:
		return 1
	case SourceGlobal:
		return 2
	case SourceLocal:
		return 3
	case SourceEnv:
		return 4
	case SourceFlag:
		return 5
	}
	return 0
}
