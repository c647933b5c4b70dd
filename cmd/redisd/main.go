package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"redisd/internal/config"
	"redisd/internal/keyspace"
	"redisd/internal/logger"
	"redisd/internal/rdb"
	"redisd/internal/server"
	"redisd/internal/webstatus"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redisd: %v\n", err)
		return 1
	}

	if err := logger.Init("log", logger.INFO, "redisd"); err != nil {
		fmt.Fprintf(os.Stderr, "redisd: %v\n", err)
		return 1
	}
	defer logger.Close()

	snapshotEntries, decodeStats, err := loadSnapshot(cfg)
	if err != nil {
		logger.Error("failed to decode snapshot: %v", err)
		return 1
	}

	ks := keyspace.New(snapshotEntries)

	if cfg.StatusAddr != "" {
		go func() {
			if err := webstatus.New(ks, decodeStats).Serve(cfg.StatusAddr); err != nil {
				logger.Warn("status page stopped: %v", err)
			}
		}()
	}

	srv := server.New(ks, cfg.Lookup, cfg.QPS)
	if err := srv.Serve(context.Background(), cfg.Bind); err != nil {
		logger.Error("server stopped: %v", err)
		return 1
	}
	return 0
}

func loadSnapshot(cfg config.Config) (map[string]keyspace.Entry, rdb.Stats, error) {
	path := cfg.SnapshotPath()
	if path == "" {
		return nil, rdb.Stats{}, nil
	}

	snap, err := rdb.DecodeFile(path)
	if err != nil {
		return nil, rdb.Stats{}, err
	}

	entries := make(map[string]keyspace.Entry, len(snap.Entries))
	for k, v := range snap.Entries {
		entry := keyspace.Entry{Value: v.Value}
		if v.ExpiresAtMS > 0 {
			entry.ExpiresAt = msEpochToTime(v.ExpiresAtMS)
		}
		entries[k] = entry
	}
	logger.Info("loaded snapshot %s: %d keys", path, len(entries))
	return entries, snap.Stats, nil
}

func msEpochToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
