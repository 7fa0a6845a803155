package services_test

import (
	"context"
	"testing"

	"baler/internal/services"
)

func TestContextCarriesIdentifiers(t *testing.T) {
	ctx := services.WithItemID(context.Background(), 7)
	ctx = services.WithStage(ctx, "archiving")
	ctx = services.WithRunID(ctx, "run-7f3a")

	id, ok := services.ItemIDFromContext(ctx)
	if !ok {
		t.Fatal("item id missing from context")
	}
	if id != 7 {
		t.Fatalf("item id = %d, want 7", id)
	}
	if stage, _ := services.StageFromContext(ctx); stage != "archiving" {
		t.Fatalf("stage = %q, want archiving", stage)
	}
	if runID, _ := services.RunIDFromContext(ctx); runID != "run-7f3a" {
		t.Fatalf("run id = %q, want run-7f3a", runID)
	}
}

func TestAccessorsOnBareContext(t *testing.T) {
	ctx := context.Background()
	if _, ok := services.ItemIDFromContext(ctx); ok {
		t.Fatal("unexpected item id on bare context")
	}
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("unexpected stage on bare context")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("unexpected run id on bare context")
	}
}

func TestBlankStageReadsAsAbsent(t *testing.T) {
	ctx := services.WithStage(context.Background(), "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("blank stage should read as absent")
	}
}
