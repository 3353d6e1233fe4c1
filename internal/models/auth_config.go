package models

// AuthConfig holds JWT settings for owner-facing endpoints. BootstrapKey is
// the shared secret the companion frontend presents to mint tokens.
type AuthConfig struct {
	JWTSecret    string `json:"jwt_secret" yaml:"jwt_secret"`
	TokenTTLMins int    `json:"token_ttl_mins,omitzero" yaml:"token_ttl_mins"`
	BootstrapKey string `json:"bootstrap_key" yaml:"bootstrap_key"`
}
