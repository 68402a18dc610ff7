package config

import "github.com/spf13/viper"

// defaults are applied before the config file is read so a sparse file still
// yields a runnable service.
var defaults = map[string]any{
	"instrument.enabled":                               true,
	"session.driver":                                   "memory",
	"session.ttl_minutes":                              60,
	"session.token_bytes":                              32,
	"hash.password.algorithm":                          "bcrypt",
	"hash.bcrypt.cost":                                 10,
	"modules.identity.enabled":                         true,
	"modules.stepup.enabled":                           true,
	"modules.stepup.sweeper.enabled":                   true,
	"modules.stepup.sweeper.interval_seconds":          1,
	"modules.stepup.otp.default_length":                6,
	"modules.stepup.otp.default_ttl_seconds":           300,
	"modules.stepup.otp.supersede_active":              true,
	"modules.stepup.otp.max_generate_attempts":         5,
	"modules.stepup.worker.size":                       16,
	"modules.stepup.handler.delay_seconds":             2,
	"modules.stepup.rate_limit.perform_limit":          5,
	"modules.stepup.rate_limit.perform_window_seconds": 60,
	"notification.channels":                            "EMAIL,SMS,TELEGRAM,FILE",
	"notification.sms.destination":                     "stepup.sms.outbound",
	"notification.telegram.base_url":                   "https://api.telegram.org",
	"notification.telegram.max_retries":                3,
	"notification.file.prefix":                         "otp",
	"database.migrate":                                 true,
	"storage.driver":                                   "memory",
	"messaging.driver":                                 "memory",
	"ratelimit.driver":                                 "memory",
	"session.redis.key_prefix":                         "session:",
	"ratelimit.redis.key_prefix":                       "ratelimit:",
	"idempotency.redis.key_prefix":                     "idempotency:",
	"notification.telegram.timeout_seconds":            10,
}

func applyDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
