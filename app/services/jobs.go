package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
	"github.com/shashiranjanraj/shopkart/pkg/queue"
)

const ClearCartJobName = "clear_cart"

// ClearCartJob retries removing an order's lines from the cart when placement
// could not. Only the listed lines are touched.
type ClearCartJob struct {
	UserID  primitive.ObjectID `json:"user_id"`
	OrderID primitive.ObjectID `json:"order_id"`
	Lines   []models.LineTake  `json:"lines"`

	carts CartClearer
}

func (j *ClearCartJob) JobName() string { return ClearCartJobName }

func (j *ClearCartJob) Handle(ctx context.Context) error {
	if j.carts == nil {
		return fmt.Errorf("clear_cart: no cart clearer bound")
	}
	if _, err := j.carts.RemoveLines(ctx, j.UserID, j.Lines); err != nil {
		return fmt.Errorf("clear_cart for order %s: %w", j.OrderID.Hex(), err)
	}
	metrics.OrderReconciliations.WithLabelValues("reconciled").Inc()
	logger.WithCtx(ctx).Info("cart reconciled after order placement",
		"order_id", j.OrderID.Hex(), "subject_id", j.UserID.Hex())
	return nil
}

// RegisterJobs binds the job types this package dispatches to m.
func RegisterJobs(m *queue.Manager, carts CartClearer) {
	m.Register(ClearCartJobName, func() queue.Job { return &ClearCartJob{carts: carts} })
}
