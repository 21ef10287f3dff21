// seed 创建本地调试用账号并打印访问 token
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"vida-vod/internal/app"
	"vida-vod/internal/config"
	"vida-vod/internal/infra/database"
	"vida-vod/internal/model"
	"vida-vod/internal/repository"
	"vida-vod/pkg/logger"
	"vida-vod/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	var (
		name     = flag.String("name", "demo", "user name")
		email    = flag.String("email", "demo@vida.local", "user email")
		password = flag.String("password", "demo123456", "user password")
		operator = flag.Bool("operator", false, "grant operator role")
	)
	flag.Parse()

	cfg, err := config.Load(app.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.FilePath); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to init database", zap.Error(err))
	}
	defer database.Close(db)
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to auto migrate", zap.Error(err))
	}

	ctx := context.Background()
	users := repository.NewUserRepository(db)

	// 已存在则直接签发 token
	user, err := users.GetByEmail(ctx, *email)
	switch {
	case err == nil:
		logger.Info("User already exists", zap.String("user_id", user.ID))
	case errors.Is(err, repository.ErrNotFound):
		hash, err := utils.HashPassword(*password)
		if err != nil {
			logger.Fatal("Failed to hash password", zap.Error(err))
		}
		role := model.RoleUser
		if *operator {
			role = model.RoleOperator
		}
		user = &model.User{
			ID:       uuid.NewString(),
			Name:     *name,
			Email:    *email,
			Password: hash,
			Role:     role,
		}
		if err := users.Create(ctx, user); err != nil {
			logger.Fatal("Failed to create user", zap.Error(err))
		}
		logger.Info("User created", zap.String("user_id", user.ID), zap.String("role", role))
	default:
		logger.Fatal("Failed to query user", zap.Error(err))
	}

	token, err := utils.GenerateToken(&cfg.JWT, cfg.App.Name, user.ID, user.Role)
	if err != nil {
		logger.Fatal("Failed to generate token", zap.Error(err))
	}
	fmt.Printf("user_id: %s\nrole: %s\ntoken: %s\n", user.ID, user.Role, token)
}
