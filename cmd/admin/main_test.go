package main

import (
	"bytes"
	"context"
	"testing"

	"stemweb/internal/database"
	"stemweb/internal/models"
	"stemweb/internal/repository"
	"stemweb/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupUsers(t *testing.T) (*service.UserService, repository.UserRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	repo := repository.NewUserRepository(db)
	return service.NewUserService(repo), repo
}

func TestRun_PromoteDemoteList(t *testing.T) {
	ctx := context.Background()
	users, repo := setupUsers(t)
	require.NoError(t, repo.Create(ctx, &models.User{Username: "editor", Email: "editor@example.com", Password: "x"}))

	var out bytes.Buffer
	require.NoError(t, run(ctx, users, []string{"list-admins"}, &out))
	assert.Contains(t, out.String(), "No admins found")

	out.Reset()
	require.NoError(t, run(ctx, users, []string{"promote", "1"}, &out))
	assert.Contains(t, out.String(), "Successfully promoted editor")

	out.Reset()
	require.NoError(t, run(ctx, users, []string{"promote", "1"}, &out))
	assert.Contains(t, out.String(), "already has admin=true")

	out.Reset()
	require.NoError(t, run(ctx, users, []string{"list-admins"}, &out))
	assert.Contains(t, out.String(), "editor@example.com")

	out.Reset()
	require.NoError(t, run(ctx, users, []string{"demote", "1"}, &out))
	assert.Contains(t, out.String(), "Successfully demoted editor")
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	users, _ := setupUsers(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing id", []string{"promote"}},
		{"bad id", []string{"demote", "abc"}},
		{"zero id", []string{"promote", "0"}},
		{"unknown user", []string{"promote", "42"}},
		{"unknown command", []string{"explode"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, run(ctx, users, tt.args, &bytes.Buffer{}))
		})
	}
}
