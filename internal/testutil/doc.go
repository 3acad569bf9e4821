// Package testutil provides test fixtures and a fake host for end-to-end
// tests.
//
// # Fixtures
//
// Host config fixtures are embedded using go:embed:
//
//	fixtures/valid_host_config.toml
//	fixtures/invalid_host_config.toml
//	fixtures/unknown_keys_host_config.toml
//
// ValidHostConfig and InvalidHostConfig decode them on top of the defaults;
// WriteFixture puts one on disk for config.Load.
//
// # Test Environment
//
// NewTestEnv lays out every host directory under t.TempDir() and installs
// shell-script stand-ins for nix-env, systemctl, machinectl, nsenter and su:
//
//	env := testutil.NewTestEnv(t)
//	env.FailTool(testutil.ToolNixEnv, "", 1)   // builder fails
//	env.FailTool(testutil.ToolSystemctl, "start", 1)
//	env.FillAddresses(0, 254)                  // exhaust the pool
//
// Every invocation is logged and can be inspected with Calls and CallsTo.
// The fake nsenter and su really execute the test command, so its exit
// status reaches the caller unchanged.
package testutil
