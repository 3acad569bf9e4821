// Package config provides host configuration and sandbox naming for fragile.
//
// # Host Configuration
//
// HostConfig is loaded from /etc/fragile/config.toml. Every key is optional;
// the defaults reproduce the stock nixos-container host layout:
//
//	descriptor_dir   = "/etc/containers"
//	lock_file        = "/run/lock/nixos-container"
//	containers_root  = "/var/lib/containers"
//	profiles_dir     = "/nix/var/nix/profiles/per-container"
//	gcroots_dir      = "/nix/var/nix/gcroots/per-container"
//	events_dir       = "/var/lib/fragile/events"
//	address_prefix   = "10.233"
//	name_prefix      = "fr"
//	nixos_expression = "<nixpkgs/nixos>"
//	su_path          = "su"
//	forward_signal   = "TERM"
//
//	[tools]
//	nix_env = "nix-env"
//	...
//
// Unknown keys are rejected so that typos do not silently fall back to a
// default.
//
// # Sandbox Layout
//
// Paths.For maps an identity to the host paths a sandbox owns. Identities
// are checked so they cannot escape the configured directories.
//
// # Descriptors
//
// A Descriptor is the KEY=VALUE file the container runtime reads. It is
// created exclusively; an existing file means the identity is taken.
package config
