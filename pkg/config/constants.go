package config

const (
	// EnvPrefix namespaces every environment variable read by envconfig.
	EnvPrefix = "GEMASHOP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)
