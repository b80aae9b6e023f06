package models

import (
	"context"

	"github.com/mmgarment/stitchbooks_backend/config"
	"gorm.io/gorm"
)

// beginTx starts a transaction bound to ctx so row locks and statements
// inside it are cancellable and traced.
func beginTx(ctx context.Context) *gorm.DB {
	return config.GetDB().WithContext(ctx).Begin()
}
