package flags

import (
	"strings"
	"testing"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
			require.Equal(t, opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix), envFlags[0])
			require.True(t, strings.HasPrefix(envFlags[0], EnvVarPrefix+"_"))
		})
	}
}

func TestDialectFlag(t *testing.T) {
	testCases := []struct {
		name        string
		args        []string
		expected    string
		shouldError bool
	}{
		{"default is jupiter", []string{"app"}, "jupiter", false},
		{"vintage", []string{"app", "--dialect", "vintage"}, "vintage", false},
		{"alias", []string{"app", "--dialect", "junit4"}, "junit4", false},
		{"invalid", []string{"app", "--dialect", "testng"}, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			app := &cli.App{
				Flags: []cli.Flag{Dialect},
				Action: func(ctx *cli.Context) error {
					got = ctx.String(Dialect.Name)
					return nil
				},
			}

			err := app.Run(tc.args)
			if tc.shouldError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestClasspathFlag(t *testing.T) {
	var got []string
	app := &cli.App{
		Flags: []cli.Flag{Classpath},
		Action: func(ctx *cli.Context) error {
			got = ctx.StringSlice(Classpath.Name)
			return nil
		},
	}

	require.NoError(t, app.Run([]string{"app", "--classpath", "lib/a.jar", "--classpath", "lib/spring-mock.jar"}))
	assert.Equal(t, []string{"lib/a.jar", "lib/spring-mock.jar"}, got)
}

func TestCheckRequired(t *testing.T) {
	run := func(args ...string) error {
		app := &cli.App{
			Flags:  []cli.Flag{Runner, CheckClass},
			Action: CheckRequired,
		}
		return app.Run(append([]string{"app"}, args...))
	}

	assert.Error(t, run())
	assert.NoError(t, run("--runner", "runner.jar", "--check-class", "com.example.Checks"))
}
