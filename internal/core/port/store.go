package port

import (
	"context"
	"time"

	"github.com/chargesteer/chargesteer/internal/core/domain"
)

// PointRecord is the durable slice of a charge point's state: the knobs
// an operator set, not the live telemetry.
type PointRecord struct {
	ID       string
	Mode     domain.PowerMode
	ManualKW float64
	Boost    domain.BoostConfig
}

// Store persists operator settings and delivered-energy samples so the
// engine resumes where it left off after a restart.
type Store interface {
	SavePoint(ctx context.Context, rec PointRecord) error
	LoadPoints(ctx context.Context) ([]PointRecord, error)

	SaveEcoConfig(ctx context.Context, cfg domain.EcoConfig) error
	LoadEcoConfig(ctx context.Context) (*domain.EcoConfig, error)

	AppendEnergySample(ctx context.Context, s domain.EnergySample) error
	ListEnergySamples(ctx context.Context, since time.Time) ([]domain.EnergySample, error)

	Close() error
}
