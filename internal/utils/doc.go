// Package utils exposes reusable helpers consumed by the ghfollow commands.
//
// It houses ConfigurationLoader, which layers embedded defaults, configuration
// files, GHFOLLOW_ environment variables, and mapstructure decode hooks through
// Viper, the zap-backed LoggerFactory, and the CommandContextAccessor that
// carries per-run values through cobra command contexts.
package utils
