package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment represents the current runtime environment
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	CI          Environment = "ci"
	Production  Environment = "production"
)

// GetEnvironment determines the current environment
func GetEnvironment() Environment {
	// CI environment is automatically detected
	if os.Getenv("CI") == "true" {
		return CI
	}

	switch env := os.Getenv("ENV"); env {
	case "production":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

// IsProduction returns true if the current environment is production
func IsProduction() bool {
	return GetEnvironment() == Production
}

// source resolves a setting by its environment variable name. Docker secrets
// use the lower-cased name as file name.
type source struct {
	env         Environment
	secretsDir  string
	secretFirst bool
}

func newSource(env Environment) source {
	dir := os.Getenv("SECRETS_DIR")
	if dir == "" {
		dir = "/run/secrets"
	}
	return source{
		env:        env,
		secretsDir: dir,
		// Production trusts mounted secrets over the process environment.
		secretFirst: env == Production,
	}
}

func (s source) get(name string) string {
	if s.env == CI {
		return strings.TrimSpace(os.Getenv(name))
	}
	if s.secretFirst {
		if v := s.secret(name); v != "" {
			return v
		}
		return strings.TrimSpace(os.Getenv(name))
	}
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return s.secret(name)
}

func (s source) secret(name string) string {
	data, err := os.ReadFile(filepath.Join(s.secretsDir, strings.ToLower(name)))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (s source) stringOr(name, fallback string) string {
	if v := s.get(name); v != "" {
		return v
	}
	return fallback
}

func (s source) intOr(name string, fallback int, errs *[]string) int {
	v := s.get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, name+" must be an integer")
		return fallback
	}
	return n
}

func (s source) floatOr(name string, fallback float64, errs *[]string) float64 {
	v := s.get(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, name+" must be a number")
		return fallback
	}
	return f
}

func (s source) durationOr(name string, fallback time.Duration, errs *[]string) time.Duration {
	v := s.get(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, name+" must be a duration such as 30s")
		return fallback
	}
	return d
}

func (s source) listOr(name string, fallback []string) []string {
	v := s.get(name)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
