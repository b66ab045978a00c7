package middlewares

import (
	"context"
	"reflect"
	"time"

	"bitbucket.org/verdealba/cultiva_backend/config"
	"bitbucket.org/verdealba/cultiva_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"gorm.io/gorm"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap the per-request batched readers. Handlers that assemble
// nested payloads (cycle rows with their sala and strain names) fetch
// through these instead of issuing one query per row.
type Loaders struct {
	SalaLoader   *dataloader.Loader[int, *models.Sala]
	StrainLoader *dataloader.Loader[int, *models.GeneticStrain]
	CicloLoader  *dataloader.Loader[int, *models.Ciclo]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders(conn *gorm.DB) *Loaders {
	salaReader := &salaReader{db: conn}
	strainReader := &strainReader{db: conn}
	cicloReader := &cicloReader{db: conn}

	return &Loaders{
		SalaLoader:   dataloader.NewBatchedLoader(salaReader.getSalas, dataloader.WithWait[int, *models.Sala](time.Millisecond)),
		StrainLoader: dataloader.NewBatchedLoader(strainReader.getStrains, dataloader.WithWait[int, *models.GeneticStrain](time.Millisecond)),
		CicloLoader:  dataloader.NewBatchedLoader(cicloReader.getCiclos, dataloader.WithWait[int, *models.Ciclo](time.Millisecond)),
	}
}

func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(config.GetDB())
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func For(ctx context.Context) *Loaders {
	return ctx.Value(loadersKey).(*Loaders)
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// turns results from db into dataloader results
// (T must be a struct)
func generateLoaderResults[T models.Data](results []T, ids []int) []*dataloader.Result[*T] {
	resultMap := make(map[int]T)
	var resultZero T
	resultMap[0] = resultZero.GetDefault(0).(T)
	for _, result := range results {
		resultMap[result.GetId()] = result
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		data := resultMap[id]
		if reflect.ValueOf(data).IsZero() {
			data = data.GetDefault(id).(T)
		}
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: &data})
	}
	return loaderResults
}
