package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"PriceArchiver/internal/logger"
	"PriceArchiver/internal/model"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
)

// CronParser accepts both 5-field and 6-field (leading seconds) specs.
var CronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

const (
	maxLogfileLines = 100000
	maxAttempts     = 10
)

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var err error
	add := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf(format, args...))
	}

	// Yahoo
	if len(c.Yahoo.Symbols) == 0 {
		add("Yahoo.Symbols is required")
	}
	for i, s := range c.Yahoo.Symbols {
		if s == "" {
			add("Yahoo.Symbols[%d] is blank", i)
		}
	}
	if !slices.Contains(model.Periods, c.Yahoo.Period) {
		add("Yahoo.Period %q is not one of %s", c.Yahoo.Period, strings.Join(model.Periods, ", "))
	}
	if !slices.Contains(model.Intervals, c.Yahoo.Interval) {
		add("Yahoo.Interval %q is not one of %s", c.Yahoo.Interval, strings.Join(model.Intervals, ", "))
	}
	if c.Yahoo.Timeout <= 0 {
		add("Yahoo.Timeout must be positive")
	}
	if c.Yahoo.MaxAttempts < 1 || c.Yahoo.MaxAttempts > maxAttempts {
		add("Yahoo.MaxAttempts must be between 1 and %d, got %d", maxAttempts, c.Yahoo.MaxAttempts)
	}
	if c.Yahoo.RetryBackoff <= 0 {
		add("Yahoo.RetryBackoff must be positive")
	}

	// Files
	if c.Files.OutputCSV == "" {
		add("Files.OutputCSV is required")
	}
	if c.Files.LogfileMaxLines < 0 || c.Files.LogfileMaxLines > maxLogfileLines {
		add("Files.LogfileMaxLines must be between 0 and %d, got %d", maxLogfileLines, c.Files.LogfileMaxLines)
	}
	if c.Files.LogfileMaxSizeMB < 0 {
		add("Files.LogfileMaxSizeMB must be >= 0, got %d", c.Files.LogfileMaxSizeMB)
	}
	for _, v := range []struct{ key, val string }{
		{"Files.LogfileVerbosity", c.Files.LogfileVerbosity},
		{"Files.ConsoleVerbosity", c.Files.ConsoleVerbosity},
	} {
		if v.val == "" {
			add("%s is required", v.key)
			continue
		}
		if _, perr := logger.ParseVerbosity(v.val); perr != nil {
			add("%s: %v", v.key, perr)
		}
	}

	// Email
	if c.Email.EnableEmail {
		for _, f := range []struct{ key, val string }{
			{"Email.SendEmailsTo", c.Email.SendEmailsTo},
			{"Email.SMTPServer", c.Email.SMTPServer},
			{"Email.SMTPUsername", c.Email.SMTPUsername},
			{"Email.SMTPPassword", c.Email.SMTPPassword},
		} {
			if strings.TrimSpace(f.val) == "" {
				add("%s is required when Email.EnableEmail is true", f.key)
			}
		}
		if c.Email.SMTPPort == 0 {
			add("Email.SMTPPort is required when Email.EnableEmail is true")
		} else if c.Email.SMTPPort < 1 || c.Email.SMTPPort > 65535 {
			add("Email.SMTPPort must be between 1 and 65535, got %d", c.Email.SMTPPort)
		}
		if c.Email.SMTPTimeout <= 0 {
			add("Email.SMTPTimeout must be positive")
		}
	}

	for _, key := range c.placeholders() {
		add("%s is still set to its template placeholder", key)
	}

	if c.Schedule.Cron != "" {
		if _, perr := CronParser.Parse(c.Schedule.Cron); perr != nil {
			add("Schedule.Cron %q: %v", c.Schedule.Cron, perr)
		}
	}

	return err
}

// placeholders returns the keys whose value is an unedited "<Your ... here>" marker.
func (c *Config) placeholders() []string {
	var keys []string
	check := func(key, val string) {
		v := strings.TrimSpace(val)
		if strings.HasPrefix(v, "<Your ") && strings.HasSuffix(v, ">") {
			keys = append(keys, key)
		}
	}
	for i, s := range c.Yahoo.Symbols {
		check(fmt.Sprintf("Yahoo.Symbols[%d]", i), s)
	}
	check("Email.SendEmailsTo", c.Email.SendEmailsTo)
	check("Email.SMTPServer", c.Email.SMTPServer)
	check("Email.SMTPUsername", c.Email.SMTPUsername)
	check("Email.SMTPPassword", c.Email.SMTPPassword)
	return keys
}

// IsConfigError reports whether err came from loading the configuration.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
