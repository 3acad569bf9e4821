// Package generator renders the NixOS module embedded in each sandbox.
//
// The generated configuration.nix marks the system as a container, gives
// it a default hostname equal to the sandbox identity, disables DHCP and
// imports the caller's configuration file:
//
//	content, err := generator.GenerateConfiguration(&generator.Configuration{
//	    Hostname: "fr3k9x0q2mz",
//	    Imports:  []string{"/home/dev/project/test.nix"},
//	})
//
// Paths that are not valid Nix path literals are emitted as
// (/. + "<escaped>") so that any absolute path can be imported.
package generator
