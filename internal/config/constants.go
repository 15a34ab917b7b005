package config

// DefaultFileName is the configuration file looked up next to a model.
const DefaultFileName = "weave.yaml"

// ModelFileExtensions are the recognized model file extensions.
var ModelFileExtensions = []string{".yaml", ".yml"}

// Generated member naming
const (
	SourceSuffix       = "Source"
	IntroducedInfix    = "Introduced"
	ReturnLabelPrefix  = "__aspect_return"
	BackingFieldPrefix = "_"
	NameSeparator      = "_"
	SourceOrigin       = "source" // Splice origin of the implementation link
)

// Shape adaptation helpers and names
const (
	BufferHelper      = "Buffer"
	BufferAsyncHelper = "BufferAsync"
	StreamItemName    = "item"
	ValueParamName    = "value"
	DiscardName       = "_"
)

// Names the trace interpreter binds
const (
	ConsoleTypeName   = "Console"
	WriteLineFuncName = "WriteLine"
	TaskTypeName      = "Task"
	FromResultName    = "FromResult"
	DelayFuncName     = "Delay"
)
