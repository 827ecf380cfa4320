package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool `toml:"enabled" mapstructure:"enabled"`
	UseConsoleWriter bool `toml:"useConsoleWriter" mapstructure:"useConsoleWriter"`
}

// Rolling holds the lumberjack settings of one log file.
type Rolling struct {
	File       string `toml:"file" mapstructure:"file"`
	MaxSize    int    `toml:"maxSize" mapstructure:"maxSize"` // megabytes
	MaxBackups int    `toml:"maxBackups" mapstructure:"maxBackups"`
	MaxAge     int    `toml:"maxAge" mapstructure:"maxAge"` // days
}

// LogFile implements a file based logger, one rolling file per level group.
type LogFile struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Path    string `toml:"path" mapstructure:"path"`

	Access Rolling `toml:"access" mapstructure:"access"`
	Error  Rolling `toml:"error" mapstructure:"error"`
	Info   Rolling `toml:"info" mapstructure:"info"`
	Trace  Rolling `toml:"trace" mapstructure:"trace"`
	Warn   Rolling `toml:"warn" mapstructure:"warn"`
}

// Log implements the logger config.
type Log struct {
	LogLevel string `toml:"logLevel" mapstructure:"logLevel"` // trace, debug, info, warn, error.
	LogEnv   string `toml:"logEnv" mapstructure:"logEnv"`

	// EnableAccessLogToConsole if true the webservice writes its access log to the console.
	// Does not overrule flag Console.Enabled!
	EnableAccessLogToConsole bool `toml:"enableAccessLogToConsole" mapstructure:"enableAccessLogToConsole"`
	ReportCaller             bool `toml:"reportCaller" mapstructure:"reportCaller"`
	DisableCheckAlive        bool `toml:"disableCheckAlive" mapstructure:"disableCheckAlive"` // do not log /checkalive calls

	AppName     string `toml:"appName" mapstructure:"appName"`
	ServiceName string `toml:"serviceName" mapstructure:"serviceName"`

	// Console used mainly for docker and dev.
	Console Console `toml:"console" mapstructure:"console"`

	// File logging for non docker environments.
	File LogFile `toml:"file" mapstructure:"file"`
}
