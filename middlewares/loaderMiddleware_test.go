package middlewares

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
)

// loadersContext wires a Loaders value into a bare context the same way
// LoaderMiddleware does for a request.
func loadersContext(loaders *Loaders) context.Context {
	return context.WithValue(context.Background(), loadersKey, loaders)
}

func TestLoaderMiddlewareAttachesLoaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/ciclos", nil)

	LoaderMiddleware()(c)

	loaders := For(c.Request.Context())
	if loaders == nil {
		t.Fatal("request context has no loaders after the middleware ran")
	}
	if loaders.SalaLoader == nil || loaders.StrainLoader == nil || loaders.CicloLoader == nil {
		t.Fatal("middleware must attach all three loaders")
	}
}

func TestGetSalasBatchesIntoOneFetch(t *testing.T) {
	var batches [][]int
	loader := dataloader.NewBatchedLoader(func(ctx context.Context, ids []int) []*dataloader.Result[*models.Sala] {
		batches = append(batches, ids)
		results := make([]models.Sala, 0, len(ids))
		for _, id := range ids {
			results = append(results, models.Sala{ID: id, Name: fmt.Sprintf("Sala %d", id)})
		}
		return generateLoaderResults(results, ids)
	}, dataloader.WithWait[int, *models.Sala](time.Millisecond))

	ctx := loadersContext(&Loaders{SalaLoader: loader})
	salas, errs := GetSalas(ctx, []int{3, 1, 2})

	for _, err := range errs {
		if err != nil {
			t.Fatalf("unexpected load error: %v", err)
		}
	}
	if len(batches) != 1 {
		t.Fatalf("expected one batched fetch, got %d", len(batches))
	}
	if len(salas) != 3 {
		t.Fatalf("expected 3 salas, got %d", len(salas))
	}
	// results come back in request order
	for i, id := range []int{3, 1, 2} {
		if salas[i].ID != id {
			t.Fatalf("position %d: expected sala %d, got %d", i, id, salas[i].ID)
		}
		if salas[i].Name != fmt.Sprintf("Sala %d", id) {
			t.Fatalf("sala %d has name %q", id, salas[i].Name)
		}
	}
}

func TestGetStrainsPropagatesBatchError(t *testing.T) {
	boom := errors.New("connection lost")
	loader := dataloader.NewBatchedLoader(func(ctx context.Context, ids []int) []*dataloader.Result[*models.GeneticStrain] {
		return handleError[*models.GeneticStrain](len(ids), boom)
	}, dataloader.WithWait[int, *models.GeneticStrain](time.Millisecond))

	ctx := loadersContext(&Loaders{StrainLoader: loader})
	_, errs := GetStrains(ctx, []int{1, 2})

	if len(errs) == 0 {
		t.Fatal("expected errors from a failed batch")
	}
	for _, err := range errs {
		if !errors.Is(err, boom) {
			t.Fatalf("expected the batch error, got %v", err)
		}
	}
}

func TestGenerateLoaderResultsFillsMissingIds(t *testing.T) {
	results := []models.Ciclo{{ID: 2, Name: "Flora 24"}}
	out := generateLoaderResults(results, []int{2, 99})

	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if out[0].Data == nil || (*out[0].Data).Name != "Flora 24" {
		t.Fatalf("known id resolved to %+v", out[0].Data)
	}
	// ids the query did not return still yield a placeholder, not a nil
	if out[1].Data == nil || (*out[1].Data).ID != 99 {
		t.Fatalf("missing id resolved to %+v", out[1].Data)
	}
	if (*out[1].Data).Name != "" {
		t.Fatalf("placeholder carries data: %q", (*out[1].Data).Name)
	}
}
