package repository

import (
	"fmt"

	"github.com/noah-isme/roadside-assist-api/pkg/geo"
)

// boundsConditions renders the rectangle prefilter for latitude/longitude columns. Arguments are
// appended to args and the placeholders continue from its current length.
func boundsConditions(b geo.Bounds, args []interface{}) ([]string, []interface{}) {
	conditions := []string{fmt.Sprintf("latitude BETWEEN $%d AND $%d", len(args)+1, len(args)+2)}
	args = append(args, b.MinLat, b.MaxLat)
	switch {
	case b.FullLongitude:
	case b.WrapsLongitude:
		conditions = append(conditions, fmt.Sprintf("(longitude >= $%d OR longitude <= $%d)", len(args)+1, len(args)+2))
		args = append(args, b.MinLng, b.MaxLng)
	default:
		conditions = append(conditions, fmt.Sprintf("longitude BETWEEN $%d AND $%d", len(args)+1, len(args)+2))
		args = append(args, b.MinLng, b.MaxLng)
	}
	return conditions, args
}

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}
