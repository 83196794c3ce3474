package handler

import (
	"context"
	"time"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/identity"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore"
)

// Bootstrap creates the initial zone layout on first run: a root-parent
// directory holding "/", and beneath it the Owner, Group and World zone
// directories — World additionally carrying the immutable "Services"
// subdirectory; Group is created empty. Every call generates fresh
// identities, so calling it again builds a second, unrelated tree
// rather than reusing an existing one; callers should persist
// RootParentID() and pass it to Attach on subsequent runs instead of
// re-bootstrapping.
func (h *Handler) Bootstrap(ctx context.Context) error {
	rootParentID, err := identity.New()
	if err != nil {
		return err
	}
	rootID, err := identity.New()
	if err != nil {
		return err
	}
	ownerID, err := identity.New()
	if err != nil {
		return err
	}
	groupID, err := identity.New()
	if err != nil {
		return err
	}
	worldID, err := identity.New()
	if err != nil {
		return err
	}
	worldServicesID, err := identity.New()
	if err != nil {
		return err
	}

	now := time.Now()

	rootParent := vfscore.NewDirectory(rootParentID, identity.Zero, defaultMaxVersions)
	if err := rootParent.Add(&vfscore.MetaData{
		Name:             "/",
		Type:             vfscore.FileTypeDirectory,
		CreationTime:     now,
		ChildDirectoryID: &rootID,
	}); err != nil {
		return err
	}
	if err := h.storeDirectory(ctx, vfscore.KindOwner, rootParent); err != nil {
		return err
	}

	root := vfscore.NewDirectory(rootID, rootParentID, defaultMaxVersions)
	if err := addZoneDir(root, now, vfscore.ZoneOwnerRoot, ownerID); err != nil {
		return err
	}
	if err := addZoneDir(root, now, vfscore.ZoneGroupRoot, groupID); err != nil {
		return err
	}
	if err := addZoneDir(root, now, vfscore.ZoneWorldRoot, worldID); err != nil {
		return err
	}
	if err := h.storeDirectory(ctx, vfscore.KindOwner, root); err != nil {
		return err
	}

	owner := vfscore.NewDirectory(ownerID, rootID, defaultMaxVersions)
	if err := h.storeDirectory(ctx, vfscore.KindOwner, owner); err != nil {
		return err
	}

	group := vfscore.NewDirectory(groupID, rootID, defaultMaxVersions)
	if err := h.storeDirectory(ctx, vfscore.KindGroup, group); err != nil {
		return err
	}

	world := vfscore.NewDirectory(worldID, rootID, defaultMaxVersions)
	if err := addZoneDir(world, now, vfscore.WorldServicesDir, worldServicesID); err != nil {
		return err
	}
	if err := h.storeDirectory(ctx, vfscore.KindWorld, world); err != nil {
		return err
	}

	worldServices := vfscore.NewDirectory(worldServicesID, worldID, defaultMaxVersions)
	if err := h.storeDirectory(ctx, vfscore.KindWorld, worldServices); err != nil {
		return err
	}

	h.rootParentID = rootParentID
	h.ownerRootID = ownerID
	h.groupRootID = groupID
	h.worldRootID = worldID
	return nil
}

// Attach points an already-constructed Handler at the zone roots of a
// previously bootstrapped store, skipping Bootstrap on subsequent runs.
func (h *Handler) Attach(rootParentID identity.Identity) {
	h.rootParentID = rootParentID
}

// RootParentID returns the identity of the root-parent object, the one
// piece of state a caller must persist across restarts to Attach
// instead of re-Bootstrapping.
func (h *Handler) RootParentID() identity.Identity {
	return h.rootParentID
}

const defaultMaxVersions = 5

func addZoneDir(parent *vfscore.Directory, now time.Time, name string, childID identity.Identity) error {
	return parent.Add(&vfscore.MetaData{
		Name:             name,
		Type:             vfscore.FileTypeDirectory,
		CreationTime:     now,
		ChildDirectoryID: &childID,
	})
}
