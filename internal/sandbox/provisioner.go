package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/firefly-engineering/fragile/internal/address"
	"github.com/firefly-engineering/fragile/internal/audit"
	"github.com/firefly-engineering/fragile/internal/config"
	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/generator"
	"github.com/firefly-engineering/fragile/internal/logging"
	"github.com/firefly-engineering/fragile/internal/runtime"
	"github.com/firefly-engineering/fragile/internal/system"
)

// Provisioner creates sandboxes.
type Provisioner struct {
	Paths      *config.Paths
	Allocator  *address.Allocator
	Runtime    runtime.Runtime
	Reaper     *Reaper
	Audit      *audit.Logger
	NamePrefix string

	// FS lays out the sandbox on disk. Nil means system.DefaultFS.
	FS system.FileSystem

	// NewID generates identities. Nil means config.NewIdentity.
	NewID func(prefix string) string
}

func (p *Provisioner) fs() system.FileSystem {
	if p.FS != nil {
		return p.FS
	}
	return system.DefaultFS()
}

func (p *Provisioner) newID() string {
	if p.NewID != nil {
		return p.NewID(p.NamePrefix)
	}
	return config.NewIdentity(p.NamePrefix)
}

// Create provisions a sandbox whose configuration imports configFile,
// which must be an absolute path. On failure, whatever was created is
// destroyed before the error is returned.
func (p *Provisioner) Create(ctx context.Context, configFile string) (*Sandbox, error) {
	id := p.newID()
	layout, err := p.Paths.For(id)
	if err != nil {
		return nil, fraerrors.ControlError(err.Error())
	}

	sb := &Sandbox{ID: id, Layout: layout, State: StateUnallocated}
	log := logging.Sandbox(id)
	log.Debug("provisioning sandbox", "config", configFile)

	err = p.Allocator.Reserve(ctx, func(b address.Block) error {
		sb.Block = b
		return p.writeDescriptor(sb)
	})
	if err != nil {
		return nil, p.fail(ctx, sb, err)
	}
	log.Debug("descriptor written", "path", layout.Descriptor, "block", sb.Block.String())

	if err := p.populate(sb, configFile); err != nil {
		return nil, p.fail(ctx, sb, err)
	}
	sb.State = StateFilesystemPopulated

	if err := p.Runtime.Build(ctx, layout.SystemProfile, layout.ConfigNix); err != nil {
		return nil, p.fail(ctx, sb, err)
	}
	sb.State = StateReady

	p.Audit.LogEvent(audit.EventCreate, id, fmt.Sprintf("block=%s config=%s", sb.Block, configFile))
	log.Debug("sandbox ready")
	return sb, nil
}

func (p *Provisioner) writeDescriptor(sb *Sandbox) error {
	d := config.Descriptor{
		PrivateNetwork: true,
		HostAddress:    sb.Block.HostAddress(),
		LocalAddress:   sb.Block.LocalAddress(),
		AutoStart:      false,
	}
	err := config.CreateDescriptor(p.fs(), sb.Layout.Descriptor, d)
	if err == nil {
		sb.State = StateDescriptorWritten
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		// Someone else owns this identity; leave their files alone.
		return fraerrors.IOFailure(fmt.Sprintf("sandbox %s already exists", sb.ID), err)
	}
	if _, statErr := p.fs().Lstat(sb.Layout.Descriptor); statErr == nil {
		sb.State = StateDescriptorWritten
	}
	return fraerrors.IOFailure("failed to write "+sb.Layout.Descriptor, err)
}

// populate lays out the profile and root directories and writes the
// container configuration.
func (p *Provisioner) populate(sb *Sandbox, configFile string) error {
	layout := sb.Layout
	fsys := p.fs()

	// Profiles of other sandboxes must not be readable through a shared uid.
	if err := fsys.MkdirAll(p.Paths.ProfilesDir, 0700); err != nil {
		return fraerrors.IOFailure("failed to create "+p.Paths.ProfilesDir, err)
	}
	if err := fsys.Mkdir(layout.Profile, 0755); err != nil {
		return fraerrors.IOFailure("failed to create "+layout.Profile, err)
	}

	nixosDir := filepath.Dir(layout.ConfigNix)
	if err := fsys.MkdirAll(nixosDir, 0755); err != nil {
		return fraerrors.IOFailure("failed to create "+nixosDir, err)
	}

	cfg := &generator.Configuration{
		Hostname: sb.ID,
		Imports:  []string{configFile},
	}
	if err := generator.WriteConfiguration(fsys, layout.ConfigNix, cfg); err != nil {
		return fraerrors.IOFailure("failed to write container configuration", err)
	}
	return nil
}

// fail tears down a partially provisioned sandbox and returns err.
func (p *Provisioner) fail(ctx context.Context, sb *Sandbox, err error) error {
	created := sb.State >= StateDescriptorWritten
	sb.State = StateFailed

	if !created {
		return err
	}
	p.Audit.LogEvent(audit.EventError, sb.ID, err.Error())

	log := logging.Sandbox(sb.ID)
	log.Debug("provisioning failed, destroying sandbox", "error", err)
	cleanupCtx := context.WithoutCancel(ctx)
	if stopErr := p.Reaper.Stop(cleanupCtx, sb.ID); stopErr != nil {
		log.Debug("stop after failed provisioning", "error", stopErr)
	}
	if _, destroyErr := p.Reaper.Destroy(cleanupCtx, sb.ID); destroyErr != nil {
		log.Warn("failed to destroy sandbox", "error", destroyErr)
	}
	return err
}
