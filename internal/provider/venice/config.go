package venice

// Config contains Venice provider configuration.
//   - APIKey: seeds the credential store; calls always take an explicit credential
//   - BaseURL: root of every endpoint path
//   - Timeout: bound for non-streaming calls, in seconds
type Config struct {
	APIKey  string `env:"VENICE_API_KEY"`
	BaseURL string `env:"VENICE_BASE_URL" envDefault:"https://api.venice.ai/api/v1"`
	Timeout int    `env:"VENICE_TIMEOUT"  envDefault:"120"`
}
