// Package druginfo looks up package-insert information for a medicine name
// from the public e-drug API.
package druginfo

import (
	"context"
	"errors"

	"github.com/hyperjump/pillbox/internal/models"
)

// ErrNotFound is returned when the API has no item for the requested name.
var ErrNotFound = errors.New("medicine not found")

// DefaultClassification is used when the API omits every classification field.
const DefaultClassification = "일반의약품"

// Client resolves a medicine name to its drug information.
type Client interface {
	Lookup(ctx context.Context, name string) (*models.DrugInfo, error)
}

// DummyClient returns placeholder information for any name. It stands in
// for the API when no service key is configured.
type DummyClient struct{}

// Lookup returns placeholder information named after name.
func (DummyClient) Lookup(_ context.Context, name string) (*models.DrugInfo, error) {
	return &models.DrugInfo{
		Name:           name,
		Company:        "제약회사",
		Classification: DefaultClassification,
		Ingredients:    "주성분 정보",
		Efficacy:       "효능효과 정보",
		Usage:          "용법용량 정보",
		Caution:        "주의사항",
		Storage:        "보관방법",
	}, nil
}
