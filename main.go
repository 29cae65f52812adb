package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/cppla/filebox/config"
	"github.com/cppla/filebox/models"
	"github.com/cppla/filebox/routes"
	"github.com/cppla/filebox/services"
	"github.com/cppla/filebox/storage"
	"github.com/cppla/filebox/utils"
)

const usage = `usage: filebox [command]

commands:
  serve     run the web server (default)
  init-db   create or migrate the database schema and exit
  sweep     remove uploaded blobs that no file record refers to and exit
`

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "serve", "init-db", "sweep":
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(cfg, models.All()...)
	if cmd == "init-db" {
		utils.Sugar.Info("database schema is up to date")
		return
	}

	blobs, err := storage.NewDiskStore(cfg.UploadDir)
	if err != nil {
		utils.Sugar.Fatalf("upload dir: %v", err)
	}

	if cmd == "sweep" {
		registry := services.NewFileRegistry(db, blobs, cfg.AllowedExtensions, cfg.MaxUploadBytes())
		removed, err := registry.SweepOrphans(context.Background())
		if err != nil {
			utils.Sugar.Fatalf("sweep failed after removing %d blobs: %v", len(removed), err)
		}
		utils.Logger.Info("sweep finished", zap.Int("removed", len(removed)), zap.Strings("names", removed))
		return
	}

	utils.InitRedis(cfg)

	r, err := routes.SetupRouter(cfg, db, blobs)
	if err != nil {
		utils.Sugar.Fatalf("setup router: %v", err)
	}

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
