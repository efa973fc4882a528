package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", field)
	}
	return value, nil
}

// PathID pulls a positive integer ID out of a slash-separated URL path at
// the given segment index. Splitting /api/v1/teams/7 yields an empty leading
// segment, so the ID sits at index 4.
func PathID(r *http.Request, index int, field string) (int64, error) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) <= index {
		return 0, fmt.Errorf("%s is required", field)
	}
	return ParsePositiveInt64Field(parts[index], field)
}

// TeamIDFromQuery reads the required team_id query parameter.
func TeamIDFromQuery(r *http.Request) (int64, error) {
	return ParsePositiveInt64Field(r.URL.Query().Get("team_id"), "team_id")
}
