package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jetvision/broker-backend/internal/avinode"
	"github.com/jetvision/broker-backend/internal/models"
)

// Datastore is the slice of the persistence layer the pipeline services use.
// *db.Store satisfies it; tests substitute in-memory fakes.
type Datastore interface {
	GetFlightRequest(ctx context.Context, id string) (models.FlightRequest, error)
	UpdateSyncState(ctx context.Context, id string, st models.SyncState) (models.FlightRequest, error)
	SetLastSyncError(ctx context.Context, id string, message string) error
	AppendRFQID(ctx context.Context, id, rfqID string) error
	FindByTripID(ctx context.Context, tripID string) (models.FlightRequest, error)
	FindByTripRef(ctx context.Context, ref string) (models.FlightRequest, error)
	SaveTransition(ctx context.Context, fr models.FlightRequest) error
	InsertNotification(ctx context.Context, n models.Notification) error
	ListActiveForSync(ctx context.Context) ([]models.FlightRequest, error)
}

// MarketplaceAPI is the slice of the Avinode client the services call.
type MarketplaceAPI interface {
	GetTrip(ctx context.Context, id string) (avinode.Document, error)
	GetRFQ(ctx context.Context, id string) (avinode.Document, error)
	GetQuote(ctx context.Context, id string) (avinode.Document, error)
	GetTripMessage(ctx context.Context, id string) (avinode.Document, error)
	CancelTrip(ctx context.Context, id string) error
}

func newID(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano(), rand.Intn(100000))
}
