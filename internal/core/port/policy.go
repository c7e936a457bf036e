package port

import "github.com/chargesteer/chargesteer/internal/core/domain"

// PowerPolicy decides one charge point's target power from a tick snapshot.
type PowerPolicy interface {
	Evaluate(in domain.TickInput) domain.TickResult
}
