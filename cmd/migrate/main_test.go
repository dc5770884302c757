package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestRunRejectsUnknownCommand(t *testing.T) {
	err := run(context.Background(), logger.Nop(), []string{"-cmd", "explode"})
	if !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestRunRequiresArguments(t *testing.T) {
	for _, args := range [][]string{
		{"-cmd", "create"},
		{"-cmd", "version"},
	} {
		if err := run(context.Background(), logger.Nop(), args); !errors.Is(err, errUsage) {
			t.Fatalf("%v: expected usage error, got %v", args, err)
		}
	}
}

func TestRunCreateAndValidateWithoutDatabase(t *testing.T) {
	dir := t.TempDir()
	if err := run(context.Background(), logger.Nop(), []string{"-cmd", "create", "-dir", dir, "-name", "add_index"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*_add_index.sql"))
	if len(matches) != 1 {
		t.Fatalf("expected one created migration, got %v", matches)
	}
	if err := run(context.Background(), logger.Nop(), []string{"-cmd", "validate", "-dir", dir}); err != nil {
		t.Fatalf("validate dir: %v", err)
	}
	if err := run(context.Background(), logger.Nop(), []string{"-cmd", "validate"}); err != nil {
		t.Fatalf("validate embedded: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := run(context.Background(), logger.Nop(), []string{"-cmd", "validate", "-dir", dir}); err == nil {
		t.Fatal("expected validation failure")
	}
}
