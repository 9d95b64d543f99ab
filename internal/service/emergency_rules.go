package service

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/roadside-assist-api/internal/models"
)

// ComputePriority derives the urgency rank of a new emergency. It depends only on the type and
// the injury flag and is never recomputed after creation.
func ComputePriority(t models.EmergencyType, hasInjuries bool) models.EmergencyPriority {
	switch {
	case hasInjuries || t == models.EmergencyAccident:
		return models.PriorityCritical
	case t == models.EmergencyBreakdown || t == models.EmergencyBattery:
		return models.PriorityHigh
	case t == models.EmergencyFlatTire || t == models.EmergencyFuel:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// emergencySuccessors is the dispatch graph. Cancellation is handled separately by Cancel.
var emergencySuccessors = map[models.EmergencyStatus]models.EmergencyStatus{
	models.EmergencyPending:    models.EmergencyDispatched,
	models.EmergencyDispatched: models.EmergencyInProgress,
	models.EmergencyInProgress: models.EmergencyCompleted,
}

// CanTransition reports whether to is the legal successor of from.
func CanTransition(from, to models.EmergencyStatus) bool {
	next, ok := emergencySuccessors[from]
	return ok && next == to
}

// CanCancel reports whether an emergency in status s may still be cancelled.
func CanCancel(s models.EmergencyStatus) bool {
	return s.Valid() && !s.IsTerminal()
}

// isMoney reports whether d fits the two decimal scale of the cost columns.
func isMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
