package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewProfileSelectsVariantByRole(t *testing.T) {
	customer, err := NewProfile(User{ID: "u1", Role: RoleCustomer})
	require.NoError(t, err)
	assert.IsType(t, CustomerProfile{}, customer)

	admin, err := NewProfile(User{ID: "u2", Role: RoleAdmin})
	require.NoError(t, err)
	assert.IsType(t, AdminProfile{}, admin)

	owner, err := NewProfile(User{ID: "u3", Role: RoleGarageOwner, GarageName: strPtr("Colombo Motors"), GarageAddress: strPtr("12 Galle Rd")})
	require.NoError(t, err)
	garage, ok := owner.(GarageOwnerProfile)
	require.True(t, ok)
	assert.Equal(t, "Colombo Motors", garage.GarageName)
	assert.Equal(t, RoleGarageOwner, garage.ProfileRole())
}

func TestNewProfileRejectsIncompleteGarageOwner(t *testing.T) {
	_, err := NewProfile(User{ID: "u3", Role: RoleGarageOwner, GarageName: strPtr("Colombo Motors")})
	require.True(t, errors.Is(err, ErrIncompleteProfile))

	_, err = NewProfile(User{ID: "u4", Role: "mechanic"})
	require.True(t, errors.Is(err, ErrIncompleteProfile))
}

func TestEmergencyReferenceNumberAndResponseTime(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	arrival := created.Add(17*time.Minute + 40*time.Second)
	e := EmergencyRequest{ID: "2f6c1f0e-8a1b-4c5d-9e7f-0a1b2c3d4e5f", CreatedAt: created}

	assert.Equal(t, "EMG-2025-3D4E5F", e.ReferenceNumber())
	assert.Nil(t, e.ResponseTimeMinutes())

	e.ActualArrival = &arrival
	require.NotNil(t, e.ResponseTimeMinutes())
	assert.Equal(t, 18, *e.ResponseTimeMinutes())
}

func TestPriorityRankOrdersCriticalFirst(t *testing.T) {
	assert.Less(t, PriorityCritical.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.False(t, EmergencyPriority("urgent").Valid())
}

func TestPartsTotalAndJSONBRoundTrip(t *testing.T) {
	parts := Parts{
		{Name: "tyre", Quantity: 2, Cost: decimal.RequireFromString("4500.50")},
		{Name: "valve", Quantity: 1, Cost: decimal.NewFromInt(300)},
	}
	assert.True(t, parts.Total().Equal(decimal.RequireFromString("9301")))

	raw, err := parts.Value()
	require.NoError(t, err)
	var scanned Parts
	require.NoError(t, scanned.Scan(raw))
	assert.Len(t, scanned, 2)

	require.NoError(t, scanned.Scan(nil))
	assert.Empty(t, scanned)
}

func TestEmergencyJSONNestsLocation(t *testing.T) {
	e := EmergencyRequest{ID: "e1", Location: Location{Latitude: 6.9271, Longitude: 79.8612, Address: "Fort"}}
	raw, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	loc, ok := decoded["location"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Fort", loc["address"])
	assert.NotContains(t, decoded, "latitude")
}
