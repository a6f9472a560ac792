package environment

import (
	"flag"
	"os"
	"strings"
)

// ciVariables are set by CI and deployment platforms during build pipelines.
// A build pipeline has no database to talk to, so their presence marks the
// process as non-serving.
var ciVariables = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"BUILDKITE",
	"VERCEL_ENV",
	"NETLIFY",
}

// buildCommands are argv subcommands that indicate a build-time invocation
// of the application binary rather than a serving one.
var buildCommands = []string{"build", "export", "generate"}

// Guard detects non-serving execution contexts (CI builds, static exports,
// test runs) so connection code can short-circuit before any network I/O.
//
// The zero value reads the real process environment and arguments. Lookup
// and Args exist so tests can evaluate the guard against a synthetic
// process state; the guard itself is side-effect-free and deterministic for
// a given environment.
type Guard struct {
	// Lookup resolves an environment variable. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
	// Args is the process argument vector. Defaults to os.Args.
	Args []string
}

// Skip reports whether database connections must be skipped. Checks run in
// order of reliability: the explicit skip flag, the build-phase variable,
// recognized CI variables, build subcommands in argv, and finally a
// best-effort test-binary heuristic.
func (g Guard) Skip() bool {
	realProcess := g.Lookup == nil && g.Args == nil
	lookup := g.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	args := g.Args
	if args == nil {
		args = os.Args
	}

	if truthy(lookup, "SKIP_DB_CONNECT") {
		return true
	}
	if v, ok := lookup("APP_BUILD_PHASE"); ok && v != "" {
		return true
	}
	for _, name := range ciVariables {
		if truthy(lookup, name) {
			return true
		}
	}
	if len(args) > 1 {
		for _, arg := range args[1:] {
			for _, cmd := range buildCommands {
				if arg == cmd {
					return true
				}
			}
		}
	}

	// Last resort: recognize the Go test harness. Best-effort only and
	// evaluated solely against the real process state; the explicit flags
	// above are the supported way to mark a build context.
	if !realProcess {
		return false
	}
	if len(args) > 0 && strings.HasSuffix(args[0], ".test") {
		return true
	}
	return flag.Lookup("test.v") != nil
}

// ShouldSkipDatabaseConnection evaluates the default Guard against the real
// process environment. Cheap enough to call on every acquisition.
func ShouldSkipDatabaseConnection() bool {
	return Guard{}.Skip()
}

func truthy(lookup func(string) (string, bool), name string) bool {
	v, ok := lookup(name)
	if !ok {
		return false
	}
	switch strings.ToLower(v) {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}
