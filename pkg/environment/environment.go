package environment

import "os"

// Environment represents the deployment tier the process runs in.
type Environment string

const (
	// Development for local development.
	Development Environment = "development"
	// Staging for pre-production deployments.
	Staging Environment = "staging"
	// Production for production deployments.
	Production Environment = "production"
	// Test for test runs and CI pipelines.
	Test Environment = "test"
)

// Parse maps a raw tier name to a known Environment. Short aliases used by
// deployment platforms ("dev", "prod", "stage") are accepted. Unknown values
// fall back to Development so a misconfigured process never gets production
// pool sizes or TLS requirements by accident.
func Parse(raw string) Environment {
	switch raw {
	case string(Production), "prod":
		return Production
	case string(Staging), "stage":
		return Staging
	case string(Test), "testing", "ci":
		return Test
	default:
		return Development
	}
}

// FromEnv resolves the current tier from the APP_ENV variable.
func FromEnv() Environment {
	return Parse(os.Getenv("APP_ENV"))
}

// IsProduction reports whether env is the production tier.
func (e Environment) IsProduction() bool { return e == Production }

// IsDevelopment reports whether env is the development tier.
func (e Environment) IsDevelopment() bool { return e == Development }

// IsStaging reports whether env is the staging tier.
func (e Environment) IsStaging() bool { return e == Staging }

// IsTest reports whether env is the test tier.
func (e Environment) IsTest() bool { return e == Test }
