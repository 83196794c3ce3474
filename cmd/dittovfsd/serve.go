package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/internal/logger"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/config"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/handler"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/store"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/store/badger"
	"github.com/maidsafe-archive/MaidSafe-Drive-sub001/pkg/vfscore/store/memory"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Bootstrap or attach to the zone store and host the core",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	objStore, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	configDir := configPath
	if configDir == "" {
		configDir = defaultConfigDir()
	} else {
		configDir = filepath.Dir(configDir)
	}

	h, err := attachOrBootstrap(objStore, cfg, statePath(configDir))
	if err != nil {
		return fmt.Errorf("attach handler: %w", err)
	}

	logger.Info("dittovfsd ready",
		logger.WorldWritable(cfg.WorldWritable))
	_ = h // the mount adapter that would call h.OpenFile/Release is out of scope for this binary

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("press Ctrl+C to stop")
	<-sigChan
	cancel()
	logger.Info("shutdown signal received")
	return nil
}

func openStore(cfg config.StoreConfig) (store.ObjectStore, func(), error) {
	switch cfg.Backend {
	case "badger":
		st, err := badger.Open(cfg.BadgerDir)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {
			if err := st.Close(); err != nil {
				logger.Warn("badger close failed", logger.Err(err))
			}
		}, nil
	case "memory", "":
		return memory.New(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// attachOrBootstrap loads persisted handler state from stPath if
// present and Attaches to it; otherwise it generates fresh keys,
// bootstraps the zone layout, and persists the resulting state so the
// next run attaches instead of bootstrapping again.
func attachOrBootstrap(objStore store.ObjectStore, cfg *config.DriveConfig, stPath string) (*handler.Handler, error) {
	ctx := context.Background()

	st, found, err := loadState(stPath)
	if err != nil {
		return nil, err
	}
	if found {
		h := handler.New(handler.Config{
			Store:         objStore,
			SigningKey:    st.signingKey(),
			OwnerKey:      st.OwnerKey,
			GroupKey:      st.GroupKey,
			WorldWritable: cfg.WorldWritable,
		})
		h.Attach(st.RootParentID)
		logger.Info("attached to existing zone layout", logger.Path(stPath))
		return h, nil
	}

	newSt, signingKey, err := newState()
	if err != nil {
		return nil, err
	}
	h := handler.New(handler.Config{
		Store:         objStore,
		SigningKey:    signingKey,
		OwnerKey:      newSt.OwnerKey,
		GroupKey:      newSt.GroupKey,
		WorldWritable: cfg.WorldWritable,
	})
	if err := h.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap zone layout: %w", err)
	}
	newSt.RootParentID = h.RootParentID()
	if err := saveState(stPath, newSt); err != nil {
		return nil, fmt.Errorf("persist handler state: %w", err)
	}
	logger.Info("bootstrapped new zone layout", logger.Path(stPath))
	return h, nil
}
