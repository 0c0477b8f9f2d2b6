package config

const (
	defaultMediaDir              = "~/.local/share/scribe/media"
	defaultLogDir                = "~/.local/share/scribe/logs"
	defaultAPIBind               = "127.0.0.1:7319"
	defaultSTTBaseURL            = "http://127.0.0.1:9090/v1/audio/transcriptions"
	defaultSTTModel              = "whisper-large-v3"
	defaultSTTLanguage           = "en"
	defaultSTTTimeoutSeconds     = 600
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMReferer            = "https://github.com/scribe/scribe"
	defaultLLMTitle              = "Scribe Minutes"
	defaultLLMTimeoutSeconds     = 120
	defaultNotifyRequestTimeout  = 10
	defaultStageTimeoutSeconds   = 1800
	defaultRetryMaxAttempts      = 4
	defaultRetryBaseDelaySeconds = 2
	defaultRetryMaxDelaySeconds  = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir: defaultMediaDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		STT: STT{
			BaseURL:        defaultSTTBaseURL,
			Model:          defaultSTTModel,
			Language:       defaultSTTLanguage,
			TimeoutSeconds: defaultSTTTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Minutes: Minutes{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Errors:         true,
		},
		Pipeline: Pipeline{
			StageTimeoutSeconds:   defaultStageTimeoutSeconds,
			RetryMaxAttempts:      defaultRetryMaxAttempts,
			RetryBaseDelaySeconds: defaultRetryBaseDelaySeconds,
			RetryMaxDelaySeconds:  defaultRetryMaxDelaySeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
